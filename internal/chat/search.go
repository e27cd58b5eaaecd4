package chat

import (
	"context"
	"sync"

	"github.com/ggaspari/clack/internal/model"
)

// searchState holds the last completed search. A new query replaces
// the previous result set wholesale.
type searchState struct {
	mu      sync.Mutex
	query   model.SearchQuery
	results []model.Message
}

// Search runs a server-side message search and replaces the retained
// result set. Results are read-only records; selecting one is a jump
// target, not a timeline entry.
func (s *Service) Search(ctx context.Context, q model.SearchQuery) ([]model.Message, error) {
	results, err := s.api.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	s.search.mu.Lock()
	s.search.query = q
	s.search.results = results
	s.search.mu.Unlock()
	return results, nil
}

// SearchResults returns the retained results of the last search.
func (s *Service) SearchResults() (model.SearchQuery, []model.Message) {
	s.search.mu.Lock()
	defer s.search.mu.Unlock()
	out := make([]model.Message, len(s.search.results))
	copy(out, s.search.results)
	return s.search.query, out
}

// ClearSearch drops the retained result set.
func (s *Service) ClearSearch() {
	s.search.mu.Lock()
	s.search.query = model.SearchQuery{}
	s.search.results = nil
	s.search.mu.Unlock()
}

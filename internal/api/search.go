package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ggaspari/clack/internal/model"
)

// Search runs a full-text query against the backend. Pure
// request/response; nothing is cached client-side and failures are
// never retried automatically.
func (c *Client) Search(ctx context.Context, q model.SearchQuery) ([]model.Message, error) {
	params := url.Values{}
	params.Set("q", q.Query)
	if q.Channel != "" {
		params.Set("channel_id", q.Channel)
	}
	if q.Sender != "" {
		params.Set("sender", q.Sender)
	}
	if q.HasFile {
		params.Set("has_file", "true")
	}

	var resp struct {
		Results []model.Message `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/search", params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

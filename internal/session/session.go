package session

// Session is the explicit identity context injected into the API
// client and the push transport. Nothing in the core reads ambient
// globals: multiple simulated sessions can coexist in tests.
type Session struct {
	Name   string
	UserID string
	Token  string
}

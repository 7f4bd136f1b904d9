package session

import "errors"

var (
	// ErrNotAuthenticated is returned by actions that need a signed-in
	// user. Clients answer it by opening the sign-in flow.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrArticleNotFound  = errors.New("article not found")
	ErrAuthorNotFound   = errors.New("author not found")
	ErrNoDraft          = errors.New("no draft in progress")
	ErrEmptyComment     = errors.New("comment text is empty")
	ErrSessionNotFound  = errors.New("session not found")
)

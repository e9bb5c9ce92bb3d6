package issues

import "errors"

var (
	// ErrNotFound means no issue exists with the requested id.
	ErrNotFound = errors.New("issues: not found")
	// ErrForbidden means the caller may not modify this issue.
	ErrForbidden = errors.New("issues: forbidden")
	// ErrInvalidInput covers create payloads that fail validation.
	ErrInvalidInput = errors.New("issues: invalid input")
	// ErrInvalidPatch covers update payloads with a bad status, category
	// or location shape.
	ErrInvalidPatch = errors.New("issues: invalid patch")
	// ErrStoreUnavailable wraps infrastructure failures from the store.
	ErrStoreUnavailable = errors.New("issues: store unavailable")
)

package pagination

import "errors"

var (
	// ErrInvalidCursor is returned for tokens that cannot be decoded or verified.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrInvalidLimit is returned for page sizes below one.
	ErrInvalidLimit = errors.New("limit must be greater than 0")
)

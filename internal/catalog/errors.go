package catalog

import "errors"

var (
	ErrInvalidSchema = errors.New("invalid catalog schema")
	ErrDecode        = errors.New("catalog decode failed")
	ErrUnreadable    = errors.New("catalog unreadable")
	ErrPlaceholder   = errors.New("placeholder catalog not written")
)

package domain

import "errors"

var ErrInvalidEntry = errors.New("invalid catalog entry")

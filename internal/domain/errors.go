package domain

import "errors"

var ErrInvalidMode = errors.New("invalid key mode")

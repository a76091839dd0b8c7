package repository

import "errors"

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrUnknownDriver    = errors.New("unknown storage driver")
	ErrEmptyTerm        = errors.New("empty search term")
)

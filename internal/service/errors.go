package service

import "errors"

// Стабильный набор исходов для уровня API
var (
	ErrAlreadyWatched = errors.New("asteroid already in watchlist")
	ErrNotFound       = errors.New("record not found")
	ErrInvalidMessage = errors.New("invalid chat message")
)

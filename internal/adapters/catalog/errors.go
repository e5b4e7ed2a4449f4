package catalog

import "errors"

// Sentinel kinds for catalog errors.
var (
	ErrGameExists      = errors.New("game already registered")
	ErrGameNotFound    = errors.New("game not found")
	ErrInvalidGame     = errors.New("invalid game registration")
	ErrInvalidPlayer   = errors.New("invalid roster entry")
	ErrPlayerSideTaken = errors.New("player already rostered on the other side")
)

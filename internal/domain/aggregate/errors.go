package aggregate

import "errors"

// Sentinel kinds for apply failures. The ingestion gateway translates
// these into the public rejection taxonomy.
var (
	ErrGameClosed   = errors.New("game is finished")
	ErrNotLive      = errors.New("game is not live")
	ErrNotScheduled = errors.New("game is not in the scheduled state")
	ErrUnknownSide  = errors.New("player is not rostered for this game")
	ErrUnknownType  = errors.New("unknown stat type")
)

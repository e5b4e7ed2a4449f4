package model

import "time"

// Delta is the minimal change description produced by applying one
// StatEvent, sufficient for a subscriber that already holds the prior
// state to advance to the new one.
type Delta struct {
	GameID    string    `json:"game_id"`
	Seq       uint64    `json:"seq"`
	Type      StatType  `json:"type"`
	PlayerID  string    `json:"player_id,omitempty"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`

	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`

	// PlayerTotals carries the touched player's full totals after the
	// event, nil for control events.
	PlayerTotals *StatTotals `json:"player_totals,omitempty"`

	// Populated when the event changed game flow rather than a stat line.
	Status       GameStatus `json:"status,omitempty"`
	Period       int        `json:"period,omitempty"`
	ClockSeconds int        `json:"clock_seconds,omitempty"`
}

// Terminal reports whether this delta closes the game.
func (d *Delta) Terminal() bool {
	return d.Type == StatGameFinish
}

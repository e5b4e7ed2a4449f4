// Package model contains domain models passed between layers.
package model

import "time"

// StatType identifies what a StatEvent records.
type StatType string

// Player stat types. Value semantics per type are enforced by ValidValue.
const (
	StatPoints        StatType = "POINTS"
	StatAssist        StatType = "ASSIST"
	StatRebound       StatType = "REBOUND"
	StatSteal         StatType = "STEAL"
	StatBlock         StatType = "BLOCK"
	StatFoul          StatType = "FOUL"
	StatTurnover      StatType = "TURNOVER"
	StatFieldGoalMiss StatType = "FIELD_GOAL_MISS"
	StatFreeThrowMiss StatType = "FREE_THROW_MISS"
	StatMinutes       StatType = "MINUTES"
)

// Game-control types. These flow through the same event log so that the
// full GameState, clock and period included, stays a pure fold of events.
const (
	StatGameStart     StatType = "GAME_START"
	StatGamePostpone  StatType = "GAME_POSTPONE"
	StatPeriodAdvance StatType = "PERIOD_ADVANCE"
	StatClockSync     StatType = "CLOCK_SYNC"
	StatGameFinish    StatType = "GAME_FINISH"
)

// Valid reports whether t is a known stat type.
func (t StatType) Valid() bool {
	switch t {
	case StatPoints, StatAssist, StatRebound, StatSteal, StatBlock,
		StatFoul, StatTurnover, StatFieldGoalMiss, StatFreeThrowMiss,
		StatMinutes, StatGameStart, StatGamePostpone, StatPeriodAdvance,
		StatClockSync, StatGameFinish:
		return true
	}
	return false
}

// Control reports whether t is a game-control type rather than a player stat.
func (t StatType) Control() bool {
	switch t {
	case StatGameStart, StatGamePostpone, StatPeriodAdvance, StatClockSync,
		StatGameFinish:
		return true
	}
	return false
}

// ValidValue reports whether v is physically consistent for t.
func (t StatType) ValidValue(v int) bool {
	switch t {
	case StatPoints:
		return v == 1 || v == 2 || v == 3
	case StatFieldGoalMiss:
		return v == 2 || v == 3
	case StatFreeThrowMiss:
		return v == 1
	case StatAssist, StatRebound, StatSteal, StatBlock, StatFoul, StatTurnover:
		return v == 1 || v == -1
	case StatMinutes:
		return v >= 0
	case StatGameStart, StatGamePostpone, StatGameFinish:
		return v == 0
	case StatPeriodAdvance:
		return v >= 1
	case StatClockSync:
		return v >= 0
	}
	return false
}

// StatEvent is one immutable statistical occurrence in a game. Seq is
// assigned by the ingestion gateway at acceptance time; events rejected
// before acceptance never carry a sequence number.
type StatEvent struct {
	GameID    string    `json:"game_id"`
	PlayerID  string    `json:"player_id,omitempty"` // empty for control events
	Type      StatType  `json:"type"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Seq       uint64    `json:"seq"`
	DedupKey  string    `json:"dedup_key,omitempty"`
}

// EventDraft is a submission before validation and sequence assignment.
type EventDraft struct {
	GameID    string    `json:"game_id"`
	PlayerID  string    `json:"player_id,omitempty"`
	Type      StatType  `json:"type"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	DedupKey  string    `json:"dedup_key,omitempty"`
}

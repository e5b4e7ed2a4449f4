package model

import "time"

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	StatusScheduled GameStatus = "SCHEDULED"
	StatusLive      GameStatus = "LIVE"
	StatusFinished  GameStatus = "FINISHED"
	StatusPostponed GameStatus = "POSTPONED"
)

// TeamSide distinguishes the two rosters of a game.
type TeamSide string

const (
	SideHome TeamSide = "HOME"
	SideAway TeamSide = "AWAY"
)

// StatTotals holds a player's raw counters plus derived fields. Derived
// fields are recomputed from the raw counters on every update, never
// patched incrementally, so long games cannot accumulate drift.
type StatTotals struct {
	Points        int `json:"points"`
	Rebounds      int `json:"rebounds"`
	Assists       int `json:"assists"`
	Steals        int `json:"steals"`
	Blocks        int `json:"blocks"`
	Turnovers     int `json:"turnovers"`
	Fouls         int `json:"fouls"`
	FieldGoalsMade int `json:"field_goals_made"`
	FieldGoalsAtt  int `json:"field_goals_attempted"`
	ThreesMade     int `json:"three_pointers_made"`
	ThreesAtt      int `json:"three_pointers_attempted"`
	FreeThrowsMade int `json:"free_throws_made"`
	FreeThrowsAtt  int `json:"free_throws_attempted"`
	MinutesPlayed  int `json:"minutes_played"`

	FieldGoalPct float64 `json:"field_goal_pct"`
	ThreePct     float64 `json:"three_point_pct"`
	FreeThrowPct float64 `json:"free_throw_pct"`
	Efficiency   int     `json:"efficiency"`
}

// Recompute refreshes every derived field from the raw counters.
func (t *StatTotals) Recompute() {
	t.FieldGoalPct = pct(t.FieldGoalsMade, t.FieldGoalsAtt)
	t.ThreePct = pct(t.ThreesMade, t.ThreesAtt)
	t.FreeThrowPct = pct(t.FreeThrowsMade, t.FreeThrowsAtt)
	t.Efficiency = t.Points + t.Rebounds + t.Assists + t.Steals + t.Blocks -
		(t.FieldGoalsAtt - t.FieldGoalsMade) -
		(t.FreeThrowsAtt - t.FreeThrowsMade) -
		t.Turnovers
}

func pct(made, attempted int) float64 {
	if attempted == 0 {
		return 0
	}
	return float64(made) / float64(attempted)
}

// GameState is the aggregated scoreboard and per-player totals for one
// game. It is a pure deterministic fold of the game's StatEvents: given
// the same log prefix, replay always reproduces the same state.
type GameState struct {
	GameID        string                 `json:"game_id"`
	Status        GameStatus             `json:"status"`
	HomeScore     int                    `json:"home_score"`
	AwayScore     int                    `json:"away_score"`
	Period        int                    `json:"period"`
	ClockSeconds  int                    `json:"clock_seconds"`
	Players       map[string]*StatTotals `json:"players"`
	LastSeq       uint64                 `json:"last_seq"`
	LastTimestamp time.Time              `json:"last_timestamp"`
}

// NewGameState returns the initial state for a scheduled game.
func NewGameState(gameID string) *GameState {
	return &GameState{
		GameID:  gameID,
		Status:  StatusScheduled,
		Players: make(map[string]*StatTotals),
	}
}

// Clone returns a deep copy, safe to hand to readers while the original
// keeps being mutated inside the per-game section.
func (g *GameState) Clone() *GameState {
	cp := *g
	cp.Players = make(map[string]*StatTotals, len(g.Players))
	for id, totals := range g.Players {
		t := *totals
		cp.Players[id] = &t
	}
	return &cp
}

// TotalsFor returns the totals for playerID, creating a zero entry on
// first touch.
func (g *GameState) TotalsFor(playerID string) *StatTotals {
	t, ok := g.Players[playerID]
	if !ok {
		t = &StatTotals{}
		g.Players[playerID] = t
	}
	return t
}

// GameInfo is the catalog record for a game: identity, rosters, metadata.
type GameInfo struct {
	GameID     string    `json:"game_id"`
	HomeTeamID string    `json:"home_team_id"`
	AwayTeamID string    `json:"away_team_id"`
	LeagueID   string    `json:"league_id,omitempty"`
	Venue      string    `json:"venue,omitempty"`
	Tipoff     time.Time `json:"tipoff"`

	// Roster maps player IDs to the side they play for.
	Roster map[string]TeamSide `json:"roster"`
}

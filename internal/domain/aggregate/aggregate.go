// Package aggregate folds stat events into running game state.
//
// Apply is deterministic: given the same prior state and event it always
// produces the same new state and delta, which is what makes replaying
// the event log from scratch reproduce live state exactly.
package aggregate

import (
	"github.com/courtside/courtside/internal/domain/model"
)

// SideResolver reports which side of a game a player is rostered on.
type SideResolver interface {
	Side(gameID, playerID string) (model.TeamSide, bool)
}

// Aggregator applies accepted events to game state. It holds no per-game
// state of its own; callers own the GameState and serialize access to it.
type Aggregator struct {
	sides SideResolver
}

// New creates an Aggregator using sides for score attribution.
func New(sides SideResolver) *Aggregator {
	return &Aggregator{sides: sides}
}

// Apply mutates state with one accepted event and returns the broadcast
// delta. The event must already carry its assigned sequence number.
func (a *Aggregator) Apply(state *model.GameState, ev model.StatEvent) (*model.Delta, error) {
	if state.Status == model.StatusFinished {
		return nil, ErrGameClosed
	}

	if ev.Type.Control() {
		if err := a.applyControl(state, ev); err != nil {
			return nil, err
		}
	} else {
		if err := a.applyStat(state, ev); err != nil {
			return nil, err
		}
	}

	state.LastSeq = ev.Seq
	if ev.Timestamp.After(state.LastTimestamp) {
		state.LastTimestamp = ev.Timestamp
	}

	return a.delta(state, ev), nil
}

func (a *Aggregator) applyControl(state *model.GameState, ev model.StatEvent) error {
	switch ev.Type {
	case model.StatGameStart:
		// A postponed game may be rescheduled and started later.
		if state.Status != model.StatusScheduled && state.Status != model.StatusPostponed {
			return ErrNotScheduled
		}
		state.Status = model.StatusLive
		state.Period = 1
	case model.StatGamePostpone:
		if state.Status != model.StatusScheduled {
			return ErrNotScheduled
		}
		state.Status = model.StatusPostponed
	case model.StatPeriodAdvance:
		if state.Status != model.StatusLive {
			return ErrNotLive
		}
		state.Period = ev.Value
	case model.StatClockSync:
		if state.Status != model.StatusLive {
			return ErrNotLive
		}
		state.ClockSeconds = ev.Value
	case model.StatGameFinish:
		if state.Status != model.StatusLive {
			return ErrNotLive
		}
		state.Status = model.StatusFinished
	default:
		return ErrUnknownType
	}
	return nil
}

func (a *Aggregator) applyStat(state *model.GameState, ev model.StatEvent) error {
	if state.Status != model.StatusLive {
		return ErrNotLive
	}

	side, ok := a.sides.Side(ev.GameID, ev.PlayerID)
	if !ok {
		return ErrUnknownSide
	}

	totals := state.TotalsFor(ev.PlayerID)
	switch ev.Type {
	case model.StatPoints:
		totals.Points += ev.Value
		switch ev.Value {
		case 1:
			totals.FreeThrowsMade++
			totals.FreeThrowsAtt++
		case 2:
			totals.FieldGoalsMade++
			totals.FieldGoalsAtt++
		case 3:
			totals.FieldGoalsMade++
			totals.FieldGoalsAtt++
			totals.ThreesMade++
			totals.ThreesAtt++
		}
		if side == model.SideHome {
			state.HomeScore += ev.Value
		} else {
			state.AwayScore += ev.Value
		}
	case model.StatFieldGoalMiss:
		totals.FieldGoalsAtt++
		if ev.Value == 3 {
			totals.ThreesAtt++
		}
	case model.StatFreeThrowMiss:
		totals.FreeThrowsAtt++
	case model.StatAssist:
		totals.Assists += ev.Value
	case model.StatRebound:
		totals.Rebounds += ev.Value
	case model.StatSteal:
		totals.Steals += ev.Value
	case model.StatBlock:
		totals.Blocks += ev.Value
	case model.StatFoul:
		totals.Fouls += ev.Value
	case model.StatTurnover:
		totals.Turnovers += ev.Value
	case model.StatMinutes:
		totals.MinutesPlayed += ev.Value
	default:
		return ErrUnknownType
	}

	totals.Recompute()
	return nil
}

// delta builds the minimal broadcast payload for an applied event.
func (a *Aggregator) delta(state *model.GameState, ev model.StatEvent) *model.Delta {
	d := &model.Delta{
		GameID:    ev.GameID,
		Seq:       ev.Seq,
		Type:      ev.Type,
		PlayerID:  ev.PlayerID,
		Value:     ev.Value,
		Timestamp: ev.Timestamp,
		HomeScore: state.HomeScore,
		AwayScore: state.AwayScore,
	}
	if ev.Type.Control() {
		d.Status = state.Status
		d.Period = state.Period
		d.ClockSeconds = state.ClockSeconds
	} else if totals, ok := state.Players[ev.PlayerID]; ok {
		cp := *totals
		d.PlayerTotals = &cp
	}
	return d
}

// Replay folds events in order onto a fresh state for gameID. Events must
// be ordered by sequence number; the result equals the state produced by
// applying them one at a time as they were accepted.
func (a *Aggregator) Replay(gameID string, events []model.StatEvent) (*model.GameState, error) {
	state := model.NewGameState(gameID)
	for i := range events {
		if _, err := a.Apply(state, events[i]); err != nil {
			return nil, err
		}
	}
	return state, nil
}

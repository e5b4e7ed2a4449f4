package model_test

import (
	"testing"

	"github.com/courtside/courtside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStatType(t *testing.T) {
	Convey("Given the stat type enum", t, func() {
		Convey("Known types are valid", func() {
			for _, st := range []model.StatType{
				model.StatPoints, model.StatAssist, model.StatRebound,
				model.StatSteal, model.StatBlock, model.StatFoul,
				model.StatTurnover, model.StatFieldGoalMiss,
				model.StatFreeThrowMiss, model.StatMinutes,
				model.StatGameStart, model.StatGamePostpone,
				model.StatPeriodAdvance, model.StatClockSync,
				model.StatGameFinish,
			} {
				So(st.Valid(), ShouldBeTrue)
			}
		})

		Convey("Unknown types are invalid", func() {
			So(model.StatType("DUNK_RATING").Valid(), ShouldBeFalse)
			So(model.StatType("").Valid(), ShouldBeFalse)
		})

		Convey("Control classification", func() {
			So(model.StatGameStart.Control(), ShouldBeTrue)
			So(model.StatGamePostpone.Control(), ShouldBeTrue)
			So(model.StatGameFinish.Control(), ShouldBeTrue)
			So(model.StatPoints.Control(), ShouldBeFalse)
			So(model.StatRebound.Control(), ShouldBeFalse)
		})

		Convey("Value ranges", func() {
			So(model.StatPoints.ValidValue(2), ShouldBeTrue)
			So(model.StatPoints.ValidValue(3), ShouldBeTrue)
			So(model.StatPoints.ValidValue(4), ShouldBeFalse)
			So(model.StatPoints.ValidValue(0), ShouldBeFalse)
			So(model.StatFieldGoalMiss.ValidValue(1), ShouldBeFalse)
			So(model.StatFieldGoalMiss.ValidValue(3), ShouldBeTrue)
			So(model.StatFreeThrowMiss.ValidValue(1), ShouldBeTrue)
			So(model.StatRebound.ValidValue(-1), ShouldBeTrue)
			So(model.StatRebound.ValidValue(2), ShouldBeFalse)
			So(model.StatMinutes.ValidValue(-1), ShouldBeFalse)
			So(model.StatPeriodAdvance.ValidValue(0), ShouldBeFalse)
			So(model.StatGameStart.ValidValue(0), ShouldBeTrue)
			So(model.StatGamePostpone.ValidValue(0), ShouldBeTrue)
			So(model.StatGamePostpone.ValidValue(1), ShouldBeFalse)
		})
	})
}

func TestStatTotals(t *testing.T) {
	Convey("Given raw counters", t, func() {
		totals := model.StatTotals{
			Points:         10,
			Rebounds:       5,
			Assists:        3,
			Steals:         1,
			Blocks:         1,
			Turnovers:      2,
			FieldGoalsMade: 4,
			FieldGoalsAtt:  8,
			ThreesMade:     1,
			ThreesAtt:      3,
			FreeThrowsMade: 1,
			FreeThrowsAtt:  2,
		}

		Convey("Recompute derives percentages and efficiency", func() {
			totals.Recompute()
			So(totals.FieldGoalPct, ShouldAlmostEqual, 0.5)
			So(totals.ThreePct, ShouldAlmostEqual, 1.0/3.0)
			So(totals.FreeThrowPct, ShouldAlmostEqual, 0.5)
			// 10+5+3+1+1 - (8-4) - (2-1) - 2 = 13
			So(totals.Efficiency, ShouldEqual, 13)
		})

		Convey("Zero attempts yield zero percentages", func() {
			fresh := model.StatTotals{}
			fresh.Recompute()
			So(fresh.FieldGoalPct, ShouldEqual, 0)
			So(fresh.ThreePct, ShouldEqual, 0)
			So(fresh.FreeThrowPct, ShouldEqual, 0)
		})
	})
}

func TestGameState(t *testing.T) {
	Convey("Given a fresh game state", t, func() {
		state := model.NewGameState("game-1")
		So(state.Status, ShouldEqual, model.StatusScheduled)
		So(state.LastSeq, ShouldEqual, 0)

		Convey("TotalsFor creates entries lazily", func() {
			totals := state.TotalsFor("p1")
			So(totals, ShouldNotBeNil)
			totals.Points = 7
			So(state.TotalsFor("p1").Points, ShouldEqual, 7)
		})

		Convey("Clone is a deep copy", func() {
			state.TotalsFor("p1").Points = 4
			cp := state.Clone()
			cp.TotalsFor("p1").Points = 99
			cp.HomeScore = 50
			So(state.TotalsFor("p1").Points, ShouldEqual, 4)
			So(state.HomeScore, ShouldEqual, 0)
		})
	})
}

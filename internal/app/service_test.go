package service_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/courtside/courtside/internal/adapters/broadcast"
	service "github.com/courtside/courtside/internal/app"
	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/internal/gateway"
	"github.com/courtside/courtside/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newStartedService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func seedLiveGame(t *testing.T, svc *service.Service, gameID string) time.Time {
	t.Helper()
	ctx := context.Background()

	if err := svc.CreateGame(ctx, model.GameInfo{
		GameID:     gameID,
		HomeTeamID: "hawks",
		AwayTeamID: "bulls",
	}); err != nil {
		t.Fatalf("create game: %v", err)
	}
	if err := svc.AddPlayer(ctx, gameID, "p1", model.SideHome); err != nil {
		t.Fatalf("add player: %v", err)
	}
	if err := svc.AddPlayer(ctx, gameID, "p2", model.SideAway); err != nil {
		t.Fatalf("add player: %v", err)
	}

	tip := time.Now().UTC()
	if _, err := svc.Submit(ctx, model.EventDraft{
		GameID:    gameID,
		Type:      model.StatGameStart,
		Timestamp: tip,
	}); err != nil {
		t.Fatalf("start game: %v", err)
	}
	return tip
}

func recvMessage(c <-chan broadcast.Message) (broadcast.Message, bool) {
	select {
	case msg, ok := <-c:
		return msg, ok
	case <-time.After(2 * time.Second):
		return broadcast.Message{}, false
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithTolerance(time.Minute),
			service.WithLockTimeout(time.Second),
			service.WithDedupeSize(25_000),
			service.WithBlockedPolicy(broadcast.PolicyDisconnect),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldBeTrue)
			})

			Convey("And starting it again is a no-op", func() {
				So(svc.Start(context.Background()), ShouldBeNil)
			})
		})
	})
}

func TestService_EndToEnd(t *testing.T) {
	Convey("Given a started service with a live game", t, func() {
		ctx := context.Background()
		svc := newStartedService(t)
		tip := seedLiveGame(t, svc, "g1")

		Convey("When a subscriber joins and events are submitted", func() {
			sub, err := svc.Subscribe(ctx, "conn-1", "g1")
			So(err, ShouldBeNil)

			snap, ok := recvMessage(sub.C())
			So(ok, ShouldBeTrue)
			So(snap.Kind, ShouldEqual, broadcast.KindSnapshot)
			So(snap.State.Status, ShouldEqual, model.StatusLive)
			So(snap.Seq, ShouldEqual, 1)

			res, err := svc.Submit(ctx, model.EventDraft{
				GameID:    "g1",
				PlayerID:  "p1",
				Type:      model.StatPoints,
				Value:     3,
				Timestamp: tip.Add(10 * time.Second),
			})
			So(err, ShouldBeNil)
			So(res.Seq, ShouldEqual, 2)

			Convey("Then the delta reaches the subscriber in order", func() {
				msg, ok := recvMessage(sub.C())
				So(ok, ShouldBeTrue)
				So(msg.Kind, ShouldEqual, broadcast.KindDelta)
				So(msg.Seq, ShouldEqual, 2)
				So(msg.Delta.HomeScore, ShouldEqual, 3)
				So(msg.Delta.PlayerTotals.ThreesMade, ShouldEqual, 1)
			})

			Convey("And the snapshot reflects the applied event", func() {
				state, err := svc.Snapshot(ctx, "g1")

				So(err, ShouldBeNil)
				So(state.HomeScore, ShouldEqual, 3)
				So(state.LastSeq, ShouldEqual, 2)
				So(state.Players["p1"].Points, ShouldEqual, 3)
			})

			Convey("And the history holds the full ordered log", func() {
				events, err := svc.History(ctx, "g1", 0, 0)

				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0].Type, ShouldEqual, model.StatGameStart)
				So(events[1].Seq, ShouldEqual, 2)
			})
		})

		Convey("When the same dedup key is submitted twice", func() {
			draft := model.EventDraft{
				GameID:    "g1",
				PlayerID:  "p2",
				Type:      model.StatRebound,
				Value:     1,
				Timestamp: tip.Add(5 * time.Second),
				DedupKey:  "evt-42",
			}

			first, err := svc.Submit(ctx, draft)
			So(err, ShouldBeNil)

			second, err := svc.Submit(ctx, draft)

			Convey("Then the retry acknowledges the original sequence", func() {
				So(err, ShouldBeNil)
				So(second.Duplicate, ShouldBeTrue)
				So(second.Seq, ShouldEqual, first.Seq)

				state, err := svc.Snapshot(ctx, "g1")
				So(err, ShouldBeNil)
				So(state.Players["p2"].Rebounds, ShouldEqual, 1)
			})
		})

		Convey("When a stat arrives for an unrostered player", func() {
			_, err := svc.Submit(ctx, model.EventDraft{
				GameID:    "g1",
				PlayerID:  "ghost",
				Type:      model.StatSteal,
				Value:     1,
				Timestamp: tip.Add(time.Second),
			})

			Convey("Then it is refused without consuming a sequence", func() {
				So(err, ShouldEqual, gateway.ErrUnknownPlayer)

				state, serr := svc.Snapshot(ctx, "g1")
				So(serr, ShouldBeNil)
				So(state.LastSeq, ShouldEqual, 1)
			})
		})

		Convey("When the game finishes", func() {
			_, err := svc.Submit(ctx, model.EventDraft{
				GameID:    "g1",
				Type:      model.StatGameFinish,
				Timestamp: tip.Add(time.Hour),
			})
			So(err, ShouldBeNil)

			Convey("Then further stats are refused as closed", func() {
				_, err := svc.Submit(ctx, model.EventDraft{
					GameID:    "g1",
					PlayerID:  "p1",
					Type:      model.StatPoints,
					Value:     2,
					Timestamp: tip.Add(2 * time.Hour),
				})

				So(err, ShouldEqual, gateway.ErrGameClosed)
			})
		})
	})
}

func TestService_Stats(t *testing.T) {
	Convey("Given a started service with games and a subscriber", t, func() {
		ctx := context.Background()
		svc := newStartedService(t)
		seedLiveGame(t, svc, "g1")

		_, err := svc.Subscribe(ctx, "conn-1", "g1")
		So(err, ShouldBeNil)

		Convey("Then GetStats reflects the counts", func() {
			stats := svc.GetStats()

			So(stats["started"], ShouldBeTrue)
			So(stats["totalGames"], ShouldEqual, 1)
			So(stats["subscribers"], ShouldEqual, 1)
		})
	})
}

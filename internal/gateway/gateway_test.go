package gateway_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courtside/courtside/internal/adapters/catalog"
	"github.com/courtside/courtside/internal/adapters/eventstore"
	"github.com/courtside/courtside/internal/domain/aggregate"
	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/internal/gateway"
	"github.com/courtside/courtside/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var t0 = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

// capturingPublisher records published deltas in order.
type capturingPublisher struct {
	mu     sync.Mutex
	deltas []*model.Delta
}

func (p *capturingPublisher) Publish(_ context.Context, delta *model.Delta) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deltas = append(p.deltas, delta)
}

func (p *capturingPublisher) all() []*model.Delta {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*model.Delta, len(p.deltas))
	copy(out, p.deltas)
	return out
}

// flakyStore fails a configured number of appends before succeeding.
type flakyStore struct {
	*eventstore.MemoryStore
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) Append(ctx context.Context, ev model.StatEvent) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return eventstore.ErrStorageUnavailable
	}
	s.mu.Unlock()
	return s.MemoryStore.Append(ctx, ev)
}

// blockingStore holds every append until released.
type blockingStore struct {
	*eventstore.MemoryStore
	gate chan struct{}
}

func (s *blockingStore) Append(ctx context.Context, ev model.StatEvent) error {
	<-s.gate
	return s.MemoryStore.Append(ctx, ev)
}

func newCatalog(gameID string) *catalog.Catalog {
	ctx := context.Background()
	c := catalog.New()
	_ = c.CreateGame(ctx, model.GameInfo{
		GameID:     gameID,
		HomeTeamID: "lions",
		AwayTeamID: "hawks",
		Tipoff:     t0,
	})
	_ = c.AddPlayer(ctx, gameID, "home-1", model.SideHome)
	_ = c.AddPlayer(ctx, gameID, "away-1", model.SideAway)
	return c
}

func startGame(ctx context.Context, g *gateway.Gateway, gameID string) {
	_, _ = g.Submit(ctx, model.EventDraft{
		GameID:    gameID,
		Type:      model.StatGameStart,
		Timestamp: t0,
	})
}

func points(gameID, playerID string, value int, ts time.Time) model.EventDraft {
	return model.EventDraft{
		GameID:    gameID,
		PlayerID:  playerID,
		Type:      model.StatPoints,
		Value:     value,
		Timestamp: ts,
	}
}

func TestSubmitAcceptance(t *testing.T) {
	ctx := context.Background()

	Convey("Given a live game", t, func() {
		cat := newCatalog("g1")
		store := eventstore.NewMemoryStore()
		agg := aggregate.New(cat)
		pub := &capturingPublisher{}
		g := gateway.New(store, agg, cat, gateway.WithPublisher(pub))
		startGame(ctx, g, "g1")

		Convey("A made two is accepted with the next sequence", func() {
			res, err := g.Submit(ctx, points("g1", "home-1", 2, t0.Add(time.Second)))
			So(err, ShouldBeNil)
			So(res.Seq, ShouldEqual, 2) // seq 1 was GAME_START
			So(res.Duplicate, ShouldBeFalse)

			state, err := g.Snapshot(ctx, "g1")
			So(err, ShouldBeNil)
			So(state.HomeScore, ShouldEqual, 2)
			So(state.AwayScore, ShouldEqual, 0)
			totals := state.Players["home-1"]
			So(totals.Points, ShouldEqual, 2)
			So(totals.FieldGoalsMade, ShouldEqual, 1)
			So(totals.FieldGoalsAtt, ShouldEqual, 1)

			Convey("And exactly one delta was published", func() {
				deltas := pub.all()
				So(len(deltas), ShouldEqual, 2)
				So(deltas[1].Seq, ShouldEqual, 2)
				So(deltas[1].HomeScore, ShouldEqual, 2)
			})
		})

		Convey("Rejections assign no sequence number", func() {
			before, err := g.Snapshot(ctx, "g1")
			So(err, ShouldBeNil)

			cases := []struct {
				draft model.EventDraft
				kind  error
			}{
				{model.EventDraft{GameID: "", PlayerID: "home-1", Type: model.StatPoints, Value: 2, Timestamp: t0}, gateway.ErrValidation},
				{model.EventDraft{GameID: "g1", PlayerID: "home-1", Type: "DUNK", Value: 2, Timestamp: t0}, gateway.ErrValidation},
				{model.EventDraft{GameID: "g1", PlayerID: "home-1", Type: model.StatPoints, Value: 2}, gateway.ErrValidation},
				{model.EventDraft{GameID: "g1", PlayerID: "p", Type: model.StatGameFinish, Timestamp: t0}, gateway.ErrValidation},
				{points("g1", "home-1", 5, t0), gateway.ErrInvalidValue},
				{points("g9", "home-1", 2, t0), gateway.ErrUnknownGame},
				{points("g1", "benchwarmer", 2, t0), gateway.ErrUnknownPlayer},
			}
			for _, tc := range cases {
				_, err := g.Submit(ctx, tc.draft)
				So(errors.Is(err, tc.kind), ShouldBeTrue)
			}

			after, err := g.Snapshot(ctx, "g1")
			So(err, ShouldBeNil)
			So(after.LastSeq, ShouldEqual, before.LastSeq)
		})

		Convey("Scenario: stats for a scheduled game are refused", func() {
			cat2 := newCatalog("g2")
			g2 := gateway.New(eventstore.NewMemoryStore(), aggregate.New(cat2), cat2)

			_, err := g2.Submit(ctx, points("g2", "home-1", 2, t0))
			So(errors.Is(err, gateway.ErrGameNotLive), ShouldBeTrue)

			state, err := g2.Snapshot(ctx, "g2")
			So(err, ShouldBeNil)
			So(state.LastSeq, ShouldEqual, 0)
			So(state.Status, ShouldEqual, model.StatusScheduled)
		})

		Convey("Scenario: events behind the tolerance window are stale", func() {
			_, err := g.Submit(ctx, points("g1", "home-1", 2, t0.Add(time.Minute)))
			So(err, ShouldBeNil)

			// Default tolerance is 30s; 31s behind the latest accepted
			// timestamp must be refused, 29s behind must not.
			_, err = g.Submit(ctx, points("g1", "home-1", 2, t0.Add(time.Minute-31*time.Second)))
			So(errors.Is(err, gateway.ErrStaleEvent), ShouldBeTrue)

			_, err = g.Submit(ctx, points("g1", "home-1", 2, t0.Add(time.Minute-29*time.Second)))
			So(err, ShouldBeNil)
		})

		Convey("Scenario: a finished game refuses everything", func() {
			_, err := g.Submit(ctx, model.EventDraft{
				GameID: "g1", Type: model.StatGameFinish, Timestamp: t0.Add(time.Hour),
			})
			So(err, ShouldBeNil)

			_, err = g.Submit(ctx, points("g1", "home-1", 2, t0.Add(time.Hour)))
			So(errors.Is(err, gateway.ErrGameClosed), ShouldBeTrue)

			Convey("And the last published delta is terminal", func() {
				deltas := pub.all()
				So(deltas[len(deltas)-1].Terminal(), ShouldBeTrue)
			})
		})
	})
}

func TestSubmitConcurrency(t *testing.T) {
	ctx := context.Background()

	Convey("Given concurrent submissions for one game", t, func() {
		cat := newCatalog("g1")
		store := eventstore.NewMemoryStore()
		pub := &capturingPublisher{}
		g := gateway.New(store, aggregate.New(cat), cat, gateway.WithPublisher(pub))
		startGame(ctx, g, "g1")

		const n = 50
		var wg sync.WaitGroup
		seqs := make(chan uint64, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := g.Submit(ctx, points("g1", "home-1", 2, t0.Add(time.Minute)))
				if err == nil {
					seqs <- res.Seq
				}
			}()
		}
		wg.Wait()
		close(seqs)

		Convey("Sequence numbers are a contiguous run with no duplicates", func() {
			seen := make(map[uint64]bool)
			for seq := range seqs {
				So(seen[seq], ShouldBeFalse)
				seen[seq] = true
			}
			So(len(seen), ShouldEqual, n)
			for seq := uint64(2); seq <= n+1; seq++ {
				So(seen[seq], ShouldBeTrue)
			}
		})

		Convey("The state reflects every accepted event", func() {
			state, err := g.Snapshot(ctx, "g1")
			So(err, ShouldBeNil)
			So(state.HomeScore, ShouldEqual, n*2)
			So(state.LastSeq, ShouldEqual, n+1)
		})

		Convey("Published deltas are in sequence order", func() {
			deltas := pub.all()
			So(len(deltas), ShouldEqual, n+1)
			for i := 1; i < len(deltas); i++ {
				So(deltas[i].Seq, ShouldEqual, deltas[i-1].Seq+1)
			}
		})
	})
}

func TestSubmitRetryIdempotence(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store that fails its next append", t, func() {
		cat := newCatalog("g1")
		store := &flakyStore{MemoryStore: eventstore.NewMemoryStore()}
		g := gateway.New(store, aggregate.New(cat), cat)
		startGame(ctx, g, "g1")

		draft := points("g1", "home-1", 3, t0.Add(time.Second))
		draft.DedupKey = "client-key-1"

		store.mu.Lock()
		store.failures = 1
		store.mu.Unlock()

		Convey("The first submission fails without consuming a sequence", func() {
			_, err := g.Submit(ctx, draft)
			So(errors.Is(err, gateway.ErrStorageUnavailable), ShouldBeTrue)

			state, snapErr := g.Snapshot(ctx, "g1")
			So(snapErr, ShouldBeNil)
			So(state.LastSeq, ShouldEqual, 1)

			Convey("The retry succeeds with exactly one new sequence", func() {
				res, err := g.Submit(ctx, draft)
				So(err, ShouldBeNil)
				So(res.Seq, ShouldEqual, 2)
				So(res.Duplicate, ShouldBeFalse)

				Convey("And resubmitting the accepted key is a duplicate ack", func() {
					again, err := g.Submit(ctx, draft)
					So(err, ShouldBeNil)
					So(again.Seq, ShouldEqual, 2)
					So(again.Duplicate, ShouldBeTrue)

					state, err := g.Snapshot(ctx, "g1")
					So(err, ShouldBeNil)
					So(state.LastSeq, ShouldEqual, 2)
					So(state.HomeScore, ShouldEqual, 3)
				})
			})
		})
	})
}

func TestSubmitConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()

	Convey("Given many concurrent submissions sharing one dedup key", t, func() {
		cat := newCatalog("g1")
		store := eventstore.NewMemoryStore()
		g := gateway.New(store, aggregate.New(cat), cat)
		startGame(ctx, g, "g1")

		draft := points("g1", "home-1", 2, t0.Add(time.Second))
		draft.DedupKey = "retry-race-1"

		const n = 20
		var wg sync.WaitGroup
		results := make(chan gateway.SubmitResult, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if res, err := g.Submit(ctx, draft); err == nil {
					results <- res
				}
			}()
		}
		wg.Wait()
		close(results)

		Convey("Exactly one is accepted; the rest ack its sequence", func() {
			total, accepted := 0, 0
			for res := range results {
				total++
				So(res.Seq, ShouldEqual, 2)
				if !res.Duplicate {
					accepted++
				}
			}
			So(total, ShouldEqual, n)
			So(accepted, ShouldEqual, 1)

			state, err := g.Snapshot(ctx, "g1")
			So(err, ShouldBeNil)
			So(state.LastSeq, ShouldEqual, 2)
			So(state.HomeScore, ShouldEqual, 2)
		})
	})
}

func TestFinishedGameReads(t *testing.T) {
	ctx := context.Background()

	Convey("Given a game that has finished", t, func() {
		cat := newCatalog("g1")
		store := eventstore.NewMemoryStore()
		g := gateway.New(store, aggregate.New(cat), cat)
		startGame(ctx, g, "g1")

		_, err := g.Submit(ctx, points("g1", "home-1", 2, t0.Add(time.Second)))
		So(err, ShouldBeNil)
		_, err = g.Submit(ctx, model.EventDraft{
			GameID: "g1", Type: model.StatGameFinish, Timestamp: t0.Add(time.Hour),
		})
		So(err, ShouldBeNil)

		Convey("Snapshots are rebuilt from the log, nothing is lost", func() {
			state, err := g.Snapshot(ctx, "g1")

			So(err, ShouldBeNil)
			So(state.Status, ShouldEqual, model.StatusFinished)
			So(state.LastSeq, ShouldEqual, 3)
			So(state.HomeScore, ShouldEqual, 2)
			So(state.Players["home-1"].Points, ShouldEqual, 2)
		})

		Convey("History still serves the full ordered log", func() {
			events, err := g.History(ctx, "g1", 0, 0)

			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 3)
			So(events[2].Type, ShouldEqual, model.StatGameFinish)
		})

		Convey("New stats are still refused as closed", func() {
			_, err := g.Submit(ctx, points("g1", "home-1", 2, t0.Add(2*time.Hour)))

			So(errors.Is(err, gateway.ErrGameClosed), ShouldBeTrue)
		})
	})
}

func TestSubmitTimeout(t *testing.T) {
	ctx := context.Background()

	Convey("Given a game whose writer is stuck in the store", t, func() {
		cat := newCatalog("g1")
		store := &blockingStore{
			MemoryStore: eventstore.NewMemoryStore(),
			gate:        make(chan struct{}),
		}
		g := gateway.New(store, aggregate.New(cat), cat,
			gateway.WithLockTimeout(100*time.Millisecond),
		)

		done := make(chan error, 1)
		go func() {
			_, err := g.Submit(ctx, model.EventDraft{
				GameID: "g1", Type: model.StatGameStart, Timestamp: t0,
			})
			done <- err
		}()
		time.Sleep(50 * time.Millisecond) // first writer is now holding the slot

		Convey("A second submission times out instead of queuing forever", func() {
			_, err := g.Submit(ctx, model.EventDraft{
				GameID: "g1", Type: model.StatPeriodAdvance, Value: 2, Timestamp: t0,
			})
			So(errors.Is(err, gateway.ErrIngestionTimeout), ShouldBeTrue)

			close(store.gate) // release the stuck writer
			So(<-done, ShouldBeNil)
		})
	})
}

func TestReplayDeterminism(t *testing.T) {
	ctx := context.Background()

	Convey("Given a game with an accepted history", t, func() {
		cat := newCatalog("g1")
		store := eventstore.NewMemoryStore()
		agg := aggregate.New(cat)
		g := gateway.New(store, agg, cat)
		startGame(ctx, g, "g1")

		drafts := []model.EventDraft{
			points("g1", "home-1", 2, t0.Add(1*time.Second)),
			points("g1", "away-1", 3, t0.Add(2*time.Second)),
			{GameID: "g1", PlayerID: "home-1", Type: model.StatRebound, Value: 1, Timestamp: t0.Add(3 * time.Second)},
			{GameID: "g1", PlayerID: "away-1", Type: model.StatFieldGoalMiss, Value: 2, Timestamp: t0.Add(4 * time.Second)},
			{GameID: "g1", Type: model.StatPeriodAdvance, Value: 2, Timestamp: t0.Add(5 * time.Second)},
		}
		for _, draft := range drafts {
			_, err := g.Submit(ctx, draft)
			So(err, ShouldBeNil)
		}

		Convey("Replaying the stored log reproduces the live state", func() {
			live, err := g.Snapshot(ctx, "g1")
			So(err, ShouldBeNil)

			events, err := store.Read(ctx, "g1", 0, 0)
			So(err, ShouldBeNil)
			replayed, err := agg.Replay("g1", events)
			So(err, ShouldBeNil)
			So(replayed, ShouldResemble, live)
		})

		Convey("A fresh gateway over the same store recovers the state", func() {
			g2 := gateway.New(store, agg, cat)
			recovered, err := g2.Snapshot(ctx, "g1")
			So(err, ShouldBeNil)

			live, err := g.Snapshot(ctx, "g1")
			So(err, ShouldBeNil)
			So(recovered, ShouldResemble, live)

			Convey("And continues the sequence without gaps", func() {
				res, err := g2.Submit(ctx, points("g1", "home-1", 2, t0.Add(6*time.Second)))
				So(err, ShouldBeNil)
				So(res.Seq, ShouldEqual, live.LastSeq+1)
			})
		})
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	Convey("Given a game with events", t, func() {
		cat := newCatalog("g1")
		g := gateway.New(eventstore.NewMemoryStore(), aggregate.New(cat), cat)
		startGame(ctx, g, "g1")
		for i := 1; i <= 4; i++ {
			_, err := g.Submit(ctx, points("g1", "home-1", 2, t0.Add(time.Duration(i)*time.Second)))
			So(err, ShouldBeNil)
		}

		Convey("History returns the ordered slice", func() {
			events, err := g.History(ctx, "g1", 2, 4)
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 3)
			So(events[0].Seq, ShouldEqual, 2)
			So(events[2].Seq, ShouldEqual, 4)
		})

		Convey("Unknown games are refused", func() {
			_, err := g.History(ctx, "g9", 0, 0)
			So(errors.Is(err, gateway.ErrUnknownGame), ShouldBeTrue)
		})
	})
}

// Package catalog keeps the registry of games and rosters that ingestion
// validation and score attribution depend on.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/courtside/courtside/internal/domain/model"
)

// Catalog is an in-memory game registry. The surrounding platform owns
// the authoritative league/team/player tables; this mirror carries only
// what the live core needs per game.
type Catalog struct {
	mu    sync.RWMutex
	games map[string]*model.GameInfo
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		games: make(map[string]*model.GameInfo),
	}
}

// CreateGame registers a game. The game ID must be unique and both team
// IDs must be present and distinct.
func (c *Catalog) CreateGame(_ context.Context, info model.GameInfo) error {
	switch {
	case strings.TrimSpace(info.GameID) == "":
		return ErrInvalidGame
	case strings.TrimSpace(info.HomeTeamID) == "" || strings.TrimSpace(info.AwayTeamID) == "":
		return ErrInvalidGame
	case info.HomeTeamID == info.AwayTeamID:
		return ErrInvalidGame
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.games[info.GameID]; exists {
		return ErrGameExists
	}

	cp := info
	cp.Roster = make(map[string]model.TeamSide, len(info.Roster))
	for id, side := range info.Roster {
		cp.Roster[id] = side
	}
	c.games[info.GameID] = &cp
	return nil
}

// AddPlayer rosters a player on one side of a game. Re-adding a player on
// the same side is a no-op; switching sides mid-game is refused.
func (c *Catalog) AddPlayer(_ context.Context, gameID, playerID string, side model.TeamSide) error {
	if strings.TrimSpace(playerID) == "" {
		return ErrInvalidPlayer
	}
	if side != model.SideHome && side != model.SideAway {
		return ErrInvalidPlayer
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	game, ok := c.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if existing, ok := game.Roster[playerID]; ok {
		if existing != side {
			return ErrPlayerSideTaken
		}
		return nil
	}
	game.Roster[playerID] = side
	return nil
}

// Game returns a copy of the catalog record for gameID.
func (c *Catalog) Game(_ context.Context, gameID string) (model.GameInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	game, ok := c.games[gameID]
	if !ok {
		return model.GameInfo{}, false
	}

	cp := *game
	cp.Roster = make(map[string]model.TeamSide, len(game.Roster))
	for id, side := range game.Roster {
		cp.Roster[id] = side
	}
	return cp, true
}

// Side reports which side playerID is rostered on in gameID. It
// implements the aggregator's side resolution.
func (c *Catalog) Side(gameID, playerID string) (model.TeamSide, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	game, ok := c.games[gameID]
	if !ok {
		return "", false
	}
	side, ok := game.Roster[playerID]
	return side, ok
}

// List returns all registered games ordered by game ID.
func (c *Catalog) List(_ context.Context) []model.GameInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.GameInfo, 0, len(c.games))
	for _, game := range c.games {
		cp := *game
		cp.Roster = make(map[string]model.TeamSide, len(game.Roster))
		for id, side := range game.Roster {
			cp.Roster[id] = side
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out
}

// Count returns the number of registered games.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.games)
}

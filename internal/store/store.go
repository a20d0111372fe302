// Package store persists missions in SQLite or Postgres.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/flightzone/internal/mission"
)

// ErrNotFound is returned when a mission id does not exist.
var ErrNotFound = eris.New("store: mission not found")

// MissionFilter specifies criteria for listing missions.
type MissionFilter struct {
	NameContains string `json:"name_contains,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

func (f MissionFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines the persistence interface for missions.
type Store interface {
	CreateMission(ctx context.Context, m mission.Mission) (*mission.Mission, error)
	GetMission(ctx context.Context, id string) (*mission.Mission, error)
	UpdateMission(ctx context.Context, m mission.Mission) (*mission.Mission, error)
	ListMissions(ctx context.Context, filter MissionFilter) ([]mission.Mission, error)
	DeleteMission(ctx context.Context, id string) error

	// ImportMissions inserts missions, replacing the name and blob of any
	// whose id already exists. Missions without an id get a new one.
	ImportMissions(ctx context.Context, missions []mission.Mission) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

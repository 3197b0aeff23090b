package data

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrEditConflict     = errors.New("edit conflict")
	ErrNoChange         = errors.New("no change needed")
	ErrInvalidState     = errors.New("operation not applicable to current state")
	ErrFailedValidation = errors.New("failed validation")
	ErrStorage          = errors.New("storage failure")
)

// FilmStore is the contract the API layer depends on. FilmModel implements it
// over database/sql; mocks.FilmModel implements it in memory.
type FilmStore interface {
	GetAll(ctx context.Context, f Filters) ([]*Film, error)
	Get(ctx context.Context, id int64) (*Film, error)
	Insert(ctx context.Context, film *Film) error
	MarkFavorite(ctx context.Context, id int64, favorite bool) (*Film, error)
	AdjustRating(ctx context.Context, id int64, delta int) (*Film, error)
	Update(ctx context.Context, id int64, patch FilmPatch) (*Film, error)
	Delete(ctx context.Context, id int64) error
	Filter(ctx context.Context, kind string) ([]*Film, error)
	WatchedOn(ctx context.Context, date Date) ([]*Film, error)
	WatchedBefore(ctx context.Context, date Date) ([]*Film, error)
	RatedAtLeast(ctx context.Context, min int) ([]*Film, error)
	ResetWatchDates(ctx context.Context) (int64, error)
}

// Models struct to wrap all other models.
// A single "container" which will hold all database models
type Models struct {
	Films FilmStore
}

// NewModels wires the models to an already opened pool. timeout bounds each
// individual storage round trip; zero means the 3 second default.
func NewModels(db *sql.DB, timeout time.Duration) Models {
	return Models{
		Films: FilmModel{
			DB:      db,
			Timeout: timeout,
		},
	}
}

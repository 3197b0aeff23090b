package mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohafarman/filmlibrary/internal/data"
)

var _ data.FilmStore = (*FilmModel)(nil)
var _ data.FilmStore = data.FilmModel{}

func TestFilmModelOutcomes(t *testing.T) {
	m := NewFilmModel()
	m.Now = func() time.Time { return time.Date(2023, time.March, 25, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	watched, _ := data.ParseDate("2023-03-10")
	rating := 4
	film := &data.Film{Title: "21 Grams", Favorite: true, WatchDate: &watched, Rating: &rating}

	if err := m.Insert(ctx, film); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if film.ID != 1 {
		t.Fatalf("id = %d, want 1", film.ID)
	}

	rating = 1
	got, err := m.Get(ctx, film.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got.Rating != 4 {
		t.Fatal("stored film shares memory with the caller's film")
	}

	if _, err := m.MarkFavorite(ctx, film.ID, true); !errors.Is(err, data.ErrNoChange) {
		t.Errorf("MarkFavorite same value: err = %v, want ErrNoChange", err)
	}

	if _, err := m.AdjustRating(ctx, film.ID, 3); !errors.Is(err, data.ErrFailedValidation) {
		t.Errorf("AdjustRating(3): err = %v, want ErrFailedValidation", err)
	}

	up, err := m.AdjustRating(ctx, film.ID, 1)
	if err != nil || *up.Rating != 5 {
		t.Fatalf("AdjustRating(+1) = %v, %v", up, err)
	}
	if _, err := m.AdjustRating(ctx, film.ID, 1); !errors.Is(err, data.ErrInvalidState) {
		t.Errorf("AdjustRating past max: err = %v, want ErrInvalidState", err)
	}

	recent, err := m.Filter(ctx, "data")
	if err != nil || len(recent) != 1 {
		t.Fatalf("Filter(data) = %v, %v", recent, err)
	}

	if _, err := m.Filter(ctx, "bogus"); !errors.Is(err, data.ErrFailedValidation) {
		t.Errorf("Filter(bogus): err = %v, want ErrFailedValidation", err)
	}

	if err := m.Delete(ctx, film.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := m.Delete(ctx, film.ID); !errors.Is(err, data.ErrRecordNotFound) {
		t.Errorf("second Delete: err = %v, want ErrRecordNotFound", err)
	}

	next := &data.Film{Title: "Matrix"}
	if err := m.Insert(ctx, next); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if next.ID == film.ID {
		t.Error("deleted id was reused")
	}
}

func TestFilmModelStorageFailure(t *testing.T) {
	m := NewFilmModel()
	m.Err = errors.New("disk on fire")

	_, err := m.GetAll(context.Background(), data.Filters{})
	if !errors.Is(err, data.ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
}

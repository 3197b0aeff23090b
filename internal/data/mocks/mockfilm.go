package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohafarman/filmlibrary/internal/data"
	"github.com/mohafarman/filmlibrary/internal/validator"
)

// FilmModel is an in-memory data.FilmStore. It follows the same outcome rules
// as data.FilmModel so handlers can be tested without a database.
type FilmModel struct {
	mu     sync.Mutex
	films  []*data.Film
	nextID int64

	// Now is the clock used by date-relative filters; nil means time.Now.
	Now func() time.Time
	// Err, when set, is returned by every call wrapped in data.ErrStorage.
	Err error
}

func NewFilmModel() *FilmModel {
	return &FilmModel{nextID: 1}
}

// NewModels returns a Models instance backed only by mock models.
func NewModels() (data.Models, *FilmModel) {
	films := NewFilmModel()
	return data.Models{Films: films}, films
}

func clone(f *data.Film) *data.Film {
	c := *f
	if f.WatchDate != nil {
		d := *f.WatchDate
		c.WatchDate = &d
	}
	if f.Rating != nil {
		r := *f.Rating
		c.Rating = &r
	}
	return &c
}

func (m *FilmModel) storageErr(op string) error {
	if m.Err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", data.ErrStorage, op, m.Err)
}

func (m *FilmModel) today() data.Date {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return data.DateOf(now())
}

// find must be called with mu held.
func (m *FilmModel) find(id int64) (int, *data.Film) {
	for i, f := range m.films {
		if f.ID == id {
			return i, f
		}
	}
	return -1, nil
}

func (m *FilmModel) Insert(_ context.Context, film *data.Film) error {
	v := validator.New()
	if data.ValidateFilm(v, film); !v.Valid() {
		return &data.ValidationError{Errors: v.Errors}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storageErr("insert film"); err != nil {
		return err
	}

	if m.nextID == 0 {
		m.nextID = 1
	}
	film.ID = m.nextID
	m.nextID++
	m.films = append(m.films, clone(film))

	return nil
}

func (m *FilmModel) Get(_ context.Context, id int64) (*data.Film, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storageErr("get film"); err != nil {
		return nil, err
	}

	_, f := m.find(id)
	if f == nil {
		return nil, data.ErrRecordNotFound
	}

	return clone(f), nil
}

func (m *FilmModel) GetAll(_ context.Context, f data.Filters) ([]*data.Film, error) {
	if f.Sort == "" {
		f.Sort = "id"
	}
	if f.SortSafelist == nil {
		f.SortSafelist = data.FilmSortSafelist
	}

	v := validator.New()
	if data.ValidateFilters(v, f); !v.Valid() {
		return nil, &data.ValidationError{Errors: v.Errors}
	}

	films, err := m.selectWhere("list films", func(*data.Film) bool { return true })
	if err != nil {
		return nil, err
	}

	data.SortFilms(films, f)
	return films, nil
}

func (m *FilmModel) Filter(_ context.Context, kind string) ([]*data.Film, error) {
	k, err := data.ParseFilterKind(kind)
	if err != nil {
		return nil, err
	}

	return m.selectWhere("filter films", k.Predicate(m.today()).Match)
}

func (m *FilmModel) WatchedOn(_ context.Context, date data.Date) ([]*data.Film, error) {
	if date.IsZero() {
		return nil, &data.ValidationError{Errors: map[string]string{"watched_on": "must be a valid date"}}
	}
	return m.selectWhere("list films watched on date", data.WatchedOnPredicate(date).Match)
}

func (m *FilmModel) WatchedBefore(_ context.Context, date data.Date) ([]*data.Film, error) {
	if date.IsZero() {
		return nil, &data.ValidationError{Errors: map[string]string{"watched_before": "must be a valid date"}}
	}
	return m.selectWhere("list films watched before date", data.WatchedBeforePredicate(date).Match)
}

func (m *FilmModel) RatedAtLeast(_ context.Context, min int) ([]*data.Film, error) {
	v := validator.New()
	if data.ValidateMinRating(v, min); !v.Valid() {
		return nil, &data.ValidationError{Errors: v.Errors}
	}
	return m.selectWhere("list films rated at least", data.RatedAtLeastPredicate(min).Match)
}

func (m *FilmModel) selectWhere(op string, match func(*data.Film) bool) ([]*data.Film, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storageErr(op); err != nil {
		return nil, err
	}

	films := []*data.Film{}
	for _, f := range m.films {
		if match(f) {
			films = append(films, clone(f))
		}
	}

	return films, nil
}

func (m *FilmModel) MarkFavorite(_ context.Context, id int64, favorite bool) (*data.Film, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storageErr("mark favorite"); err != nil {
		return nil, err
	}

	_, f := m.find(id)
	if f == nil {
		return nil, data.ErrRecordNotFound
	}
	if f.Favorite == favorite {
		return nil, data.ErrNoChange
	}

	f.Favorite = favorite
	return clone(f), nil
}

func (m *FilmModel) AdjustRating(_ context.Context, id int64, delta int) (*data.Film, error) {
	v := validator.New()
	if data.ValidateRatingDelta(v, delta); !v.Valid() {
		return nil, &data.ValidationError{Errors: v.Errors}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storageErr("adjust rating"); err != nil {
		return nil, err
	}

	_, f := m.find(id)
	if f == nil {
		return nil, data.ErrRecordNotFound
	}

	next, err := data.NextRating(f, delta)
	if err != nil {
		return nil, err
	}

	f.Rating = &next
	return clone(f), nil
}

func (m *FilmModel) Update(_ context.Context, id int64, patch data.FilmPatch) (*data.Film, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storageErr("update film"); err != nil {
		return nil, err
	}

	i, f := m.find(id)
	if f == nil {
		return nil, data.ErrRecordNotFound
	}

	updated := clone(f)

	v := validator.New()
	patch.Apply(updated, v)
	if data.ValidateFilm(v, updated); !v.Valid() {
		return nil, &data.ValidationError{Errors: v.Errors}
	}

	m.films[i] = updated
	return clone(updated), nil
}

func (m *FilmModel) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storageErr("delete film"); err != nil {
		return err
	}

	i, f := m.find(id)
	if f == nil {
		return data.ErrRecordNotFound
	}

	m.films = append(m.films[:i], m.films[i+1:]...)
	return nil
}

func (m *FilmModel) ResetWatchDates(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storageErr("reset watch dates"); err != nil {
		return 0, err
	}

	var n int64
	for _, f := range m.films {
		if f.WatchDate != nil {
			f.WatchDate = nil
			n++
		}
	}

	return n, nil
}

package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mohafarman/filmlibrary/internal/validator"
)

const (
	MinRating = 1
	MaxRating = 5

	defaultTimeout = 3 * time.Second
)

type Film struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Favorite  bool   `json:"favorite"`
	WatchDate *Date  `json:"watchdate"`
	Rating    *int   `json:"rating"`
}

// FilmPatch carries a partial update. Omitted fields keep their stored value,
// an explicit null clears watchdate or rating.
type FilmPatch struct {
	Title     Nullable[string] `json:"title"`
	Favorite  Nullable[Flag]   `json:"favorite"`
	WatchDate Nullable[Date]   `json:"watchdate"`
	Rating    Nullable[int]    `json:"rating"`
}

// Apply copies the set fields of p onto film. title and favorite cannot be
// cleared; trying to is recorded on v.
func (p FilmPatch) Apply(film *Film, v *validator.Validator) {
	if p.Title.Set {
		v.CheckField(p.Title.Valid, "title", "must not be null")
		film.Title = p.Title.Value
	}

	if p.Favorite.Set {
		v.CheckField(p.Favorite.Valid, "favorite", "must not be null")
		film.Favorite = bool(p.Favorite.Value)
	}

	if p.WatchDate.Set {
		film.WatchDate = nil
		if p.WatchDate.Valid {
			d := p.WatchDate.Value
			film.WatchDate = &d
		}
	}

	if p.Rating.Set {
		film.Rating = nil
		if p.Rating.Valid {
			r := p.Rating.Value
			film.Rating = &r
		}
	}
}

func ValidateFilm(v *validator.Validator, film *Film) {
	v.CheckField(validator.NotBlank(film.Title), "title", "must be provided")
	v.CheckField(validator.MaxChars(film.Title, 500), "title", "must not be longer than 500 characters")

	if film.WatchDate != nil {
		v.CheckField(!film.WatchDate.IsZero(), "watchdate", "must be a valid date")
	}

	if film.Rating != nil {
		v.CheckField(validator.Between(*film.Rating, MinRating, MaxRating), "rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
}

func ValidateRatingDelta(v *validator.Validator, delta int) {
	v.CheckField(validator.PermittedValue(delta, -1, 1), "delta", "must be either 1 or -1")
}

// NextRating computes the rating film would have after delta. The delta is
// validated first; an unrated film or a result outside [MinRating, MaxRating]
// is ErrInvalidState.
func NextRating(film *Film, delta int) (int, error) {
	v := validator.New()
	if ValidateRatingDelta(v, delta); !v.Valid() {
		return 0, failedValidation(v)
	}

	if film.Rating == nil {
		return 0, fmt.Errorf("%w: cannot rate an unrated film via delta", ErrInvalidState)
	}

	next := *film.Rating + delta
	if !validator.Between(next, MinRating, MaxRating) {
		return 0, fmt.Errorf("%w: rating %d%+d would leave the %d-%d range", ErrInvalidState, *film.Rating, delta, MinRating, MaxRating)
	}

	return next, nil
}

type FilmModel struct {
	DB      *sql.DB
	Timeout time.Duration
	// Now is the clock used by date-relative filters; nil means time.Now.
	Now func() time.Time
}

const filmColumns = "id, title, favorite, watchdate, rating"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFilm(row rowScanner) (*Film, error) {
	var (
		film      Film
		watchDate sql.Null[Date]
		rating    sql.Null[int]
	)

	err := row.Scan(&film.ID, &film.Title, &film.Favorite, &watchDate, &rating)
	if err != nil {
		return nil, err
	}

	if watchDate.Valid {
		d := watchDate.V
		film.WatchDate = &d
	}
	if rating.Valid {
		r := rating.V
		film.Rating = &r
	}

	return &film, nil
}

func dateArg(d *Date) any {
	if d == nil {
		return nil
	}
	return *d
}

func ratingArg(r *int) any {
	if r == nil {
		return nil
	}
	return int64(*r)
}

func (m FilmModel) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (m FilmModel) today() Date {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return DateOf(now())
}

func (m FilmModel) Insert(ctx context.Context, film *Film) error {
	v := validator.New()
	if ValidateFilm(v, film); !v.Valid() {
		return failedValidation(v)
	}

	query := `
		INSERT INTO films (title, favorite, watchdate, rating)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	args := []any{film.Title, film.Favorite, dateArg(film.WatchDate), ratingArg(film.Rating)}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&film.ID)
	if err != nil {
		return storageError("insert film", err)
	}

	return nil
}

func (m FilmModel) Get(ctx context.Context, id int64) (*Film, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT ` + filmColumns + `
		FROM films
		WHERE id = $1`

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	film, err := scanFilm(m.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, storageError("get film", err)
		}
	}

	return film, nil
}

// GetAll returns every film. The zero Filters lists in insertion order.
func (m FilmModel) GetAll(ctx context.Context, f Filters) ([]*Film, error) {
	f = f.withDefaults()

	v := validator.New()
	if ValidateFilters(v, f); !v.Valid() {
		return nil, failedValidation(v)
	}

	query := `
		SELECT ` + filmColumns + `
		FROM films
		ORDER BY ` + f.orderBy()

	return m.query(ctx, "list films", query)
}

func (m FilmModel) Filter(ctx context.Context, kind string) ([]*Film, error) {
	k, err := ParseFilterKind(kind)
	if err != nil {
		return nil, err
	}

	return m.selectWhere(ctx, "filter films", k.Predicate(m.today()))
}

func (m FilmModel) WatchedOn(ctx context.Context, date Date) ([]*Film, error) {
	if date.IsZero() {
		return nil, fieldError("watched_on", "must be a valid date")
	}

	return m.selectWhere(ctx, "list films watched on date", WatchedOnPredicate(date))
}

func (m FilmModel) WatchedBefore(ctx context.Context, date Date) ([]*Film, error) {
	if date.IsZero() {
		return nil, fieldError("watched_before", "must be a valid date")
	}

	return m.selectWhere(ctx, "list films watched before date", WatchedBeforePredicate(date))
}

func (m FilmModel) RatedAtLeast(ctx context.Context, min int) ([]*Film, error) {
	v := validator.New()
	if ValidateMinRating(v, min); !v.Valid() {
		return nil, failedValidation(v)
	}

	return m.selectWhere(ctx, "list films rated at least", RatedAtLeastPredicate(min))
}

func (m FilmModel) selectWhere(ctx context.Context, op string, p Predicate) ([]*Film, error) {
	query := `
		SELECT ` + filmColumns + `
		FROM films
		WHERE ` + p.Where + `
		ORDER BY id`

	return m.query(ctx, op, query, p.Args...)
}

func (m FilmModel) query(ctx context.Context, op, query string, args ...any) ([]*Film, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer rows.Close()

	films := []*Film{}

	for rows.Next() {
		film, err := scanFilm(rows)
		if err != nil {
			return nil, storageError(op, err)
		}

		films = append(films, film)
	}

	if err = rows.Err(); err != nil {
		return nil, storageError(op, err)
	}

	return films, nil
}

// MarkFavorite only writes when the flag actually changes. A film that
// already holds the requested value yields ErrNoChange.
func (m FilmModel) MarkFavorite(ctx context.Context, id int64, favorite bool) (*Film, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		UPDATE films
		SET favorite = $1
		WHERE id = $2 AND favorite <> $1
		RETURNING ` + filmColumns

	qctx, cancel := m.withTimeout(ctx)
	defer cancel()

	film, err := scanFilm(m.DB.QueryRowContext(qctx, query, favorite, id))
	if err == nil {
		return film, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, storageError("mark favorite", err)
	}

	/* Nothing updated: either the film is missing or the flag already matches */
	exists, err := m.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRecordNotFound
	}

	return nil, ErrNoChange
}

// AdjustRating moves a non-null rating by exactly one step. The write is
// guarded by the rating that was read, so a concurrent change in between
// surfaces as ErrEditConflict instead of being overwritten.
func (m FilmModel) AdjustRating(ctx context.Context, id int64, delta int) (*Film, error) {
	v := validator.New()
	if ValidateRatingDelta(v, delta); !v.Valid() {
		return nil, failedValidation(v)
	}

	film, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := NextRating(film, delta)
	if err != nil {
		return nil, err
	}

	return m.swapRating(ctx, id, *film.Rating, next)
}

// swapRating sets the rating to next only while it still equals prev.
func (m FilmModel) swapRating(ctx context.Context, id int64, prev, next int) (*Film, error) {
	query := `
		UPDATE films
		SET rating = $1
		WHERE id = $2 AND rating = $3
		RETURNING ` + filmColumns

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	updated, err := scanFilm(m.DB.QueryRowContext(ctx, query, next, id, prev))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrEditConflict
		default:
			return nil, storageError("adjust rating", err)
		}
	}

	return updated, nil
}

// Update applies patch on top of the stored film. The write only succeeds if
// the row still holds the values that were read, i.e. optimistic locking on
// the full previous state.
func (m FilmModel) Update(ctx context.Context, id int64, patch FilmPatch) (*Film, error) {
	film, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := *film

	v := validator.New()
	patch.Apply(film, v)
	if ValidateFilm(v, film); !v.Valid() {
		return nil, failedValidation(v)
	}

	return m.swapFilm(ctx, &previous, film)
}

// swapFilm overwrites the row with film only while it still matches previous.
func (m FilmModel) swapFilm(ctx context.Context, previous, film *Film) (*Film, error) {
	query := `
		UPDATE films
		SET title = $1, favorite = $2, watchdate = $3, rating = $4
		WHERE id = $5
		AND title = $6
		AND favorite = $7
		AND watchdate IS NOT DISTINCT FROM $8
		AND rating IS NOT DISTINCT FROM $9
		RETURNING ` + filmColumns

	args := []any{
		film.Title,
		film.Favorite,
		dateArg(film.WatchDate),
		ratingArg(film.Rating),
		previous.ID,
		previous.Title,
		previous.Favorite,
		dateArg(previous.WatchDate),
		ratingArg(previous.Rating),
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	updated, err := scanFilm(m.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrEditConflict
		default:
			return nil, storageError("update film", err)
		}
	}

	return updated, nil
}

func (m FilmModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	query := `
		DELETE FROM films
		WHERE id = $1`

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.DB.ExecContext(ctx, query, id)
	if err != nil {
		return storageError("delete film", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return storageError("delete film", err)
	}

	/* INFO: If no rows are affected that means nothing was deleted */
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// ResetWatchDates clears every watch date and reports how many films had one.
func (m FilmModel) ResetWatchDates(ctx context.Context) (int64, error) {
	query := `
		UPDATE films
		SET watchdate = NULL
		WHERE watchdate IS NOT NULL`

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	res, err := m.DB.ExecContext(ctx, query)
	if err != nil {
		return 0, storageError("reset watch dates", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("reset watch dates", err)
	}

	return rowsAffected, nil
}

func (m FilmModel) exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM films WHERE id = $1)`

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := m.DB.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, storageError("check film exists", err)
	}

	return exists, nil
}

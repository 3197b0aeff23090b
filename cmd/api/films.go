package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mohafarman/filmlibrary/internal/data"
	"github.com/mohafarman/filmlibrary/internal/validator"
)

// listSelectors are the mutually exclusive query parameters that narrow
// GET /v1/films.
var listSelectors = []string{"filter", "watched_on", "watched_before", "min_rating"}

func (app *application) listFilmsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	v := validator.New()

	filters := data.DefaultFilters()
	filters.Sort = app.readString(qs, "sort", "id")

	filter := app.readString(qs, "filter", "")
	watchedOn := app.readDate(qs, "watched_on", v)
	watchedBefore := app.readDate(qs, "watched_before", v)
	minRating := app.readInt(qs, "min_rating", 0, v)

	selected := 0
	for _, key := range listSelectors {
		if qs.Get(key) != "" {
			selected++
		}
	}
	v.CheckField(selected <= 1, "filter", "only one of filter, watched_on, watched_before or min_rating may be given")

	if data.ValidateFilters(v, filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	var (
		films []*data.Film
		err   error
	)

	switch {
	case filter != "":
		films, err = app.models.Films.Filter(r.Context(), filter)
	case qs.Get("watched_on") != "":
		films, err = app.models.Films.WatchedOn(r.Context(), watchedOn)
	case qs.Get("watched_before") != "":
		films, err = app.models.Films.WatchedBefore(r.Context(), watchedBefore)
	case qs.Get("min_rating") != "":
		films, err = app.models.Films.RatedAtLeast(r.Context(), minRating)
	default:
		films, err = app.models.Films.GetAll(r.Context(), filters)
	}
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	// Selections come back in id order; apply the requested sort on top.
	if selected > 0 {
		data.SortFilms(films, filters)
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"films": films}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) createFilmHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title     string     `json:"title"`
		Favorite  data.Flag  `json:"favorite"`
		WatchDate *data.Date `json:"watchdate"`
		Rating    *int       `json:"rating"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	film := &data.Film{
		Title:     input.Title,
		Favorite:  bool(input.Favorite),
		WatchDate: input.WatchDate,
		Rating:    input.Rating,
	}

	v := validator.New()
	if data.ValidateFilm(v, film); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.models.Films.Insert(r.Context(), film)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/films/%d", film.ID))

	err = app.writeJSON(w, http.StatusCreated, envelope{"film": film}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) showFilmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	film, err := app.models.Films.Get(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"film": film}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateFilmHandler applies a partial update. Keys left out of the body keep
// their value; "watchdate": null and "rating": null clear those fields.
func (app *application) updateFilmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var patch data.FilmPatch

	err = app.readJSON(w, r, &patch)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	film, err := app.models.Films.Update(r.Context(), id, patch)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"film": film}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) deleteFilmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	err = app.models.Films.Delete(r.Context(), id)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "film successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// favoriteFilmHandler sets the favorite flag. Setting the value the film
// already has succeeds with "changed": false.
func (app *application) favoriteFilmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input struct {
		Favorite *data.Flag `json:"favorite"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Favorite == nil {
		app.failedValidationResponse(w, r, map[string]string{"favorite": "must be provided"})
		return
	}

	changed := true

	film, err := app.models.Films.MarkFavorite(r.Context(), id, bool(*input.Favorite))
	if errors.Is(err, data.ErrNoChange) {
		changed = false
		film, err = app.models.Films.Get(r.Context(), id)
	}
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"film": film, "changed": changed}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) rateFilmHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input struct {
		Delta *int `json:"delta"`
	}

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if input.Delta == nil {
		app.failedValidationResponse(w, r, map[string]string{"delta": "must be provided"})
		return
	}

	film, err := app.models.Films.AdjustRating(r.Context(), id, *input.Delta)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"film": film}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) resetWatchDatesHandler(w http.ResponseWriter, r *http.Request) {
	n, err := app.models.Films.ResetWatchDates(r.Context())
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"reset": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

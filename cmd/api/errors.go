package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mohafarman/filmlibrary/internal/data"
)

func (app *application) logError(r *http.Request, err error) {
	app.logger.Error(err, map[string]string{
		"request_id":     requestIDFromContext(r.Context()),
		"request_method": r.Method,
		"request_url":    r.URL.String(),
	})
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	env := envelope{"error": message}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "the server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("the %s method is not supported for this resource", r.Method)
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

func (app *application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	message := "unable to update the record due to an edit conflict, please try again"
	app.errorResponse(w, r, http.StatusConflict, message)
}

func (app *application) invalidStateResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, err.Error())
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	message := "rate limit exceeded"
	app.errorResponse(w, r, http.StatusTooManyRequests, message)
}

func (app *application) digestUnavailableResponse(w http.ResponseWriter, r *http.Request) {
	message := "film digests are not configured on this server"
	app.errorResponse(w, r, http.StatusServiceUnavailable, message)
}

// storeErrorResponse answers with the status matching a FilmStore outcome.
// ErrNoChange is not an error response and must be handled by the caller.
func (app *application) storeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *data.ValidationError

	switch {
	case errors.Is(err, data.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.As(err, &validationErr):
		app.failedValidationResponse(w, r, validationErr.Errors)
	case errors.Is(err, data.ErrEditConflict):
		app.editConflictResponse(w, r)
	case errors.Is(err, data.ErrInvalidState):
		app.invalidStateResponse(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}

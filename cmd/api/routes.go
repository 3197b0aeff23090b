package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/mohafarman/filmlibrary/internal/metrics"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	router.HandlerFunc(http.MethodGet, "/v1/films", app.listFilmsHandler)
	router.HandlerFunc(http.MethodPost, "/v1/films", app.createFilmHandler)
	router.HandlerFunc(http.MethodGet, "/v1/films/:id", app.showFilmHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/films/:id", app.updateFilmHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/films/:id", app.deleteFilmHandler)
	router.HandlerFunc(http.MethodPut, "/v1/films/:id/favorite", app.favoriteFilmHandler)
	router.HandlerFunc(http.MethodPost, "/v1/films/:id/rating", app.rateFilmHandler)

	router.HandlerFunc(http.MethodDelete, "/v1/watchdates", app.resetWatchDatesHandler)
	router.HandlerFunc(http.MethodPost, "/v1/digests", app.createDigestHandler)

	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	return app.recordMetrics(app.recoverPanic(app.requestID(app.enableCORS(app.rateLimit(router)))))
}

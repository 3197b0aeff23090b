package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mohafarman/filmlibrary/internal/data"
	"github.com/mohafarman/filmlibrary/internal/mailer"
	"github.com/mohafarman/filmlibrary/internal/metrics"
)

const (
	digestTemplate = "film_digest.tmpl"
	digestAttempts = 3
)

// createDigestHandler snapshots the requested selection and emails it to the
// configured recipient in the background.
func (app *application) createDigestHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Filter string `json:"filter"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if app.mailer == nil || app.config.Digest.Recipient == "" {
		app.digestUnavailableResponse(w, r)
		return
	}

	films, err := app.models.Films.Filter(r.Context(), input.Filter)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	recipient := app.config.Digest.Recipient
	digest := map[string]any{
		"Filter": input.Filter,
		"Date":   data.DateOf(time.Now()).String(),
		"Films":  films,
	}

	app.background(func() {
		app.sendDigest(recipient, digest)
	})

	env := envelope{"message": "the digest will be emailed shortly", "films": len(films)}

	err = app.writeJSON(w, http.StatusAccepted, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) sendDigest(recipient string, digest map[string]any) {
	var err error

	for i := 1; i <= digestAttempts; i++ {
		err = app.mailer.Send(recipient, digestTemplate, digest)
		if err == nil {
			metrics.DigestsSent.WithLabelValues("sent").Inc()
			app.logger.Info("digest sent", map[string]string{"filter": digest["Filter"].(string)})
			return
		}

		if errors.Is(err, mailer.ErrUnavailable) {
			break
		}

		app.logger.Warning("digest attempt failed", map[string]string{
			"attempt": strconv.Itoa(i),
			"error":   err.Error(),
		})
		time.Sleep(app.retryDelay)
	}

	metrics.DigestsSent.WithLabelValues("failed").Inc()
	app.logger.Error(err, map[string]string{"filter": digest["Filter"].(string)})
}

package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/mohafarman/filmlibrary/internal/data"
	"github.com/mohafarman/filmlibrary/internal/data/mocks"
	"github.com/mohafarman/filmlibrary/internal/jsonlog"
)

var testNow = time.Date(2023, time.March, 25, 12, 0, 0, 0, time.UTC)

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []map[string]any
}

func (m *fakeMailer) Send(recipient, templateFile string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, data.(map[string]any))
	return nil
}

func (m *fakeMailer) State() string {
	return "closed"
}

func newTestApplication(t *testing.T) (*application, *mocks.FilmModel, *fakeMailer) {
	t.Helper()

	models, films := mocks.NewModels()
	films.Now = func() time.Time { return testNow }

	cfg := defaultConfig()
	cfg.Limiter.Enabled = false
	cfg.Digest.Recipient = "me@example.com"

	fm := &fakeMailer{}

	app := &application{
		config: cfg,
		logger: jsonlog.New(io.Discard, jsonlog.LevelInfo),
		models: models,
		mailer: fm,
	}

	return app, films, fm
}

// seedFilms stores five films with ids 1 to 5:
//
//	1 Pulp Fiction  favorite  2023-03-10  5
//	2 21 Grams      favorite  2023-03-17  4
//	3 Star Wars               -           -
//	4 Matrix                  2023-01-05  3
//	5 Shrek                   2023-03-21  -
func seedFilms(t *testing.T, store data.FilmStore) {
	t.Helper()

	date := func(s string) *data.Date {
		d, err := data.ParseDate(s)
		if err != nil {
			t.Fatal(err)
		}
		return &d
	}
	rating := func(r int) *int { return &r }

	films := []*data.Film{
		{Title: "Pulp Fiction", Favorite: true, WatchDate: date("2023-03-10"), Rating: rating(5)},
		{Title: "21 Grams", Favorite: true, WatchDate: date("2023-03-17"), Rating: rating(4)},
		{Title: "Star Wars"},
		{Title: "Matrix", WatchDate: date("2023-01-05"), Rating: rating(3)},
		{Title: "Shrek", WatchDate: date("2023-03-21")},
	}

	for _, f := range films {
		if err := store.Insert(context.Background(), f); err != nil {
			t.Fatalf("seed %s: %v", f.Title, err)
		}
	}
}

type response struct {
	status int
	header http.Header
	body   map[string]any
}

func send(t *testing.T, h http.Handler, method, path, body string) response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	res := response{status: rr.Code, header: rr.Header()}

	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &res.body); err != nil {
			t.Fatalf("%s %s: invalid JSON body %q: %v", method, path, rr.Body.String(), err)
		}
	}

	return res
}

func (r response) film(t *testing.T) map[string]any {
	t.Helper()

	film, ok := r.body["film"].(map[string]any)
	if !ok {
		t.Fatalf("response has no film: %v", r.body)
	}
	return film
}

func (r response) filmIDs(t *testing.T) []int {
	t.Helper()

	list, ok := r.body["films"].([]any)
	if !ok {
		t.Fatalf("response has no films list: %v", r.body)
	}

	ids := make([]int, 0, len(list))
	for _, item := range list {
		ids = append(ids, int(item.(map[string]any)["id"].(float64)))
	}
	return ids
}

func (r response) fieldError(key string) string {
	errs, _ := r.body["error"].(map[string]any)
	msg, _ := errs[key].(string)
	return msg
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

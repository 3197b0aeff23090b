package data

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2023-03-10", false},
		{"2024-02-29", false},
		{"2023-02-29", true},
		{"2023-02-30", true},
		{"10/03/2023", true},
		{"2023-3-10", true},
		{"0001-01-01", true},
		{"0000-06-15", true},
		{"0001-01-02", false},
		{"", true},
	}

	for _, tt := range tests {
		d, err := ParseDate(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDateFormat) {
				t.Errorf("ParseDate(%q): err = %v, want ErrInvalidDateFormat", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDate(%q): %v", tt.in, err)
			continue
		}
		if d.String() != tt.in {
			t.Errorf("ParseDate(%q).String() = %q", tt.in, d.String())
		}
	}
}

func TestDateJSON(t *testing.T) {
	var film Film
	err := json.Unmarshal([]byte(`{"title":"Shrek","watchdate":"2023-03-21","rating":null}`), &film)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if film.WatchDate == nil || !film.WatchDate.Equal(NewDate(2023, time.March, 21)) {
		t.Fatalf("watchdate = %v, want 2023-03-21", film.WatchDate)
	}

	out, err := json.Marshal(film)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"id":0,"title":"Shrek","favorite":false,"watchdate":"2023-03-21","rating":null}`
	if string(out) != want {
		t.Errorf("Marshal = %s, want %s", out, want)
	}

	var d Date
	if err := d.UnmarshalJSON([]byte(`20230321`)); !errors.Is(err, ErrInvalidDateFormat) {
		t.Errorf("unquoted date: err = %v, want ErrInvalidDateFormat", err)
	}
}

func TestDateScan(t *testing.T) {
	tests := []struct {
		name string
		src  any
	}{
		{"time", time.Date(2023, time.March, 17, 0, 0, 0, 0, time.UTC)},
		{"string", "2023-03-17"},
		{"bytes", []byte("2023-03-17")},
		{"timestamp text", "2023-03-17 00:00:00+00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			if err := d.Scan(tt.src); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if d.String() != "2023-03-17" {
				t.Errorf("Scan = %s, want 2023-03-17", d)
			}
		})
	}

	var d Date
	if err := d.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestDateOfUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	instant := time.Date(2023, time.March, 10, 23, 30, 0, 0, time.UTC).In(loc)

	if got := DateOf(instant).String(); got != "2023-03-11" {
		t.Errorf("DateOf = %s, want 2023-03-11", got)
	}
}

func TestFlagJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Flag
		wantErr bool
	}{
		{`true`, true, false},
		{`false`, false, false},
		{`1`, true, false},
		{`0`, false, false},
		{`"1"`, true, false},
		{`"false"`, false, false},
		{`null`, false, false},
		{`2`, false, true},
		{`"yes"`, false, true},
	}

	for _, tt := range tests {
		var f Flag
		err := f.UnmarshalJSON([]byte(tt.in))
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidFlagFormat) {
				t.Errorf("%s: err = %v, want ErrInvalidFlagFormat", tt.in, err)
			}
			continue
		}
		if err != nil || f != tt.want {
			t.Errorf("%s: got %v, %v; want %v", tt.in, f, err, tt.want)
		}
	}
}

func TestFilmPatchJSON(t *testing.T) {
	var patch FilmPatch
	err := json.Unmarshal([]byte(`{"title":"Matrix Reloaded","watchdate":null,"favorite":1}`), &patch)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !patch.Title.Set || !patch.Title.Valid || patch.Title.Value != "Matrix Reloaded" {
		t.Errorf("title = %+v", patch.Title)
	}
	if !patch.WatchDate.Set || patch.WatchDate.Valid {
		t.Errorf("watchdate = %+v, want explicit null", patch.WatchDate)
	}
	if patch.Rating.Set {
		t.Errorf("rating = %+v, want omitted", patch.Rating)
	}
	if !patch.Favorite.Valid || !bool(patch.Favorite.Value) {
		t.Errorf("favorite = %+v, want true", patch.Favorite)
	}

	var bad FilmPatch
	if err := json.Unmarshal([]byte(`{"watchdate":"2023-13-01"}`), &bad); err == nil {
		t.Error("invalid watchdate should fail to decode")
	}
}

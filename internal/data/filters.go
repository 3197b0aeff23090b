package data

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mohafarman/filmlibrary/internal/validator"
)

// FilmSortSafelist lists every value accepted for Filters.Sort.
var FilmSortSafelist = []string{"id", "title", "watchdate", "rating", "-id", "-title", "-watchdate", "-rating"}

type Filters struct {
	Sort         string
	SortSafelist []string
}

// DefaultFilters lists films in insertion order.
func DefaultFilters() Filters {
	return Filters{Sort: "id", SortSafelist: FilmSortSafelist}
}

func ValidateFilters(v *validator.Validator, f Filters) {
	v.CheckField(validator.PermittedValue(f.Sort, f.SortSafelist...), "sort", "invalid sort value")
}

func (f Filters) withDefaults() Filters {
	if f.Sort == "" {
		f.Sort = "id"
	}
	if f.SortSafelist == nil {
		f.SortSafelist = FilmSortSafelist
	}
	return f
}

func (f Filters) sortColumn() string {
	for _, safeValue := range f.SortSafelist {
		if f.Sort == safeValue {
			return strings.TrimPrefix(f.Sort, "-")
		}
	}

	panic("unsafe sort parameter: " + f.Sort)
}

func (f Filters) sortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return "DESC"
	}

	return "ASC"
}

// orderBy keeps films without the sort value at the end in both directions
// and breaks ties by id.
func (f Filters) orderBy() string {
	return fmt.Sprintf("%s %s NULLS LAST, id ASC", f.sortColumn(), f.sortDirection())
}

// SortFilms orders films in memory exactly as orderBy orders them in SQL.
// f must already be valid.
func SortFilms(films []*Film, f Filters) {
	f = f.withDefaults()
	column := f.sortColumn()
	desc := f.sortDirection() == "DESC"

	sort.SliceStable(films, func(i, j int) bool {
		a, b := films[i], films[j]

		c, ok := compareColumn(a, b, column)
		if !ok {
			return c < 0
		}
		if c != 0 {
			if desc {
				return c > 0
			}
			return c < 0
		}

		return a.ID < b.ID
	})
}

// compareColumn returns ok=false when only one side is null; c then places
// the null last regardless of direction.
func compareColumn(a, b *Film, column string) (c int, ok bool) {
	switch column {
	case "title":
		return strings.Compare(a.Title, b.Title), true
	case "watchdate":
		switch {
		case a.WatchDate == nil && b.WatchDate == nil:
			return 0, true
		case a.WatchDate == nil:
			return 1, false
		case b.WatchDate == nil:
			return -1, false
		}
		return a.WatchDate.Time().Compare(b.WatchDate.Time()), true
	case "rating":
		switch {
		case a.Rating == nil && b.Rating == nil:
			return 0, true
		case a.Rating == nil:
			return 1, false
		case b.Rating == nil:
			return -1, false
		}
		return *a.Rating - *b.Rating, true
	default:
		return int(a.ID - b.ID), true
	}
}

// FilterKind names one of the predefined film selections.
type FilterKind string

const (
	FilterFavorite FilterKind = "favorite"
	FilterBest     FilterKind = "best"
	FilterRecent   FilterKind = "data"
	FilterUnseen   FilterKind = "unseen"
)

// RecentWindowDays is how far back FilterRecent looks.
const RecentWindowDays = 30

// Predicate is a film selection expressed both as a SQL WHERE clause and as
// an in-memory test. Placeholders in Where start at $1.
type Predicate struct {
	Where string
	Args  []any
	Match func(*Film) bool
}

var filterPredicates = map[FilterKind]func(today Date) Predicate{
	FilterFavorite: func(Date) Predicate {
		return Predicate{
			Where: "favorite = TRUE",
			Match: func(f *Film) bool { return f.Favorite },
		}
	},
	FilterBest: func(Date) Predicate {
		return RatedAtLeastPredicate(MaxRating)
	},
	FilterRecent: func(today Date) Predicate {
		since := today.AddDays(-RecentWindowDays)
		return Predicate{
			Where: "watchdate >= $1 AND watchdate <= $2",
			Args:  []any{since, today},
			Match: func(f *Film) bool {
				return f.WatchDate != nil && !f.WatchDate.Before(since) && !f.WatchDate.After(today)
			},
		}
	},
	FilterUnseen: func(Date) Predicate {
		return Predicate{
			Where: "watchdate IS NULL",
			Match: func(f *Film) bool { return f.WatchDate == nil },
		}
	},
}

// ParseFilterKind resolves a filter name before any query is built. Unknown
// names are a validation error, never an empty or unfiltered result.
func ParseFilterKind(s string) (FilterKind, error) {
	kind := FilterKind(s)
	if _, ok := filterPredicates[kind]; !ok {
		return "", fieldError("filter", "invalid filter")
	}

	return kind, nil
}

// Predicate builds the selection for k relative to today. k must come from
// ParseFilterKind or be one of the Filter constants.
func (k FilterKind) Predicate(today Date) Predicate {
	return filterPredicates[k](today)
}

func WatchedOnPredicate(date Date) Predicate {
	return Predicate{
		Where: "watchdate = $1",
		Args:  []any{date},
		Match: func(f *Film) bool { return f.WatchDate != nil && f.WatchDate.Equal(date) },
	}
}

func WatchedBeforePredicate(date Date) Predicate {
	return Predicate{
		Where: "watchdate < $1",
		Args:  []any{date},
		Match: func(f *Film) bool { return f.WatchDate != nil && f.WatchDate.Before(date) },
	}
}

func RatedAtLeastPredicate(min int) Predicate {
	return Predicate{
		Where: "rating >= $1",
		Args:  []any{min},
		Match: func(f *Film) bool { return f.Rating != nil && *f.Rating >= min },
	}
}

func ValidateMinRating(v *validator.Validator, min int) {
	v.CheckField(validator.Between(min, MinRating, MaxRating), "min_rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
}

package data

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrInvalidDateFormat = errors.New("invalid date format, expected YYYY-MM-DD")

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day or zone. The zero Date is not
// a valid watch date; absence is modelled with a nil *Date.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// ParseDate accepts only YYYY-MM-DD and rejects impossible days such as
// 2023-02-30. 0001-01-01 and earlier collide with the zero Date and are
// rejected too.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil || t.Year() < 1 || t.IsZero() {
		return Date{}, ErrInvalidDateFormat
	}

	return Date{t: t}, nil
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) String() string {
	return d.t.Format(dateLayout)
}

func (d Date) Time() time.Time {
	return d.t
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

func (d Date) MarshalJSON() ([]byte, error) {
	// INFO: Needs to be quoted to be a valid JSON string
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(jsonValue []byte) error {
	if string(jsonValue) == "null" {
		return nil
	}

	unquoted, err := strconv.Unquote(string(jsonValue))
	if err != nil {
		return ErrInvalidDateFormat
	}

	parsed, err := ParseDate(unquoted)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// Value sends the date as YYYY-MM-DD text, which both PostgreSQL and DuckDB
// cast to DATE.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanText(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}

	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

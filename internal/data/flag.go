package data

import (
	"errors"
	"strconv"
)

var ErrInvalidFlagFormat = errors.New("invalid boolean value, expected true, false, 1 or 0")

// Flag is a boolean that also accepts the 0/1 form favorites are stored in,
// quoted or not.
type Flag bool

func ParseFlag(s string) (bool, error) {
	switch s {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, ErrInvalidFlagFormat
	}
}

// UnmarshalJSON leaves f untouched for a JSON null.
func (f *Flag) UnmarshalJSON(jsonValue []byte) error {
	s := string(jsonValue)
	if s == "null" {
		return nil
	}

	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}

	b, err := ParseFlag(s)
	if err != nil {
		return err
	}

	*f = Flag(b)
	return nil
}

package data

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/lib/pq"
	"github.com/mohafarman/filmlibrary/internal/validator"
)

// ValidationError carries the per-field messages of a rejected request.
// errors.Is(err, ErrFailedValidation) reports true for it.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Errors[k])
	}

	return ErrFailedValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrFailedValidation
}

func failedValidation(v *validator.Validator) error {
	return &ValidationError{Errors: v.Errors}
}

func fieldError(key, message string) error {
	return &ValidationError{Errors: map[string]string{key: message}}
}

// storageError classifies a driver failure. Integrity violations reported by
// PostgreSQL (SQLSTATE class 23) become validation errors, and a write that
// lost a race against another transaction becomes ErrEditConflict. Everything
// else is wrapped in ErrStorage.
func storageError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "23":
			field := pqErr.Column
			if field == "" {
				field = "film"
			}
			return fieldError(field, fmt.Sprintf("violates constraint %s", pqErr.Code.Name()))
		case pqErr.Code == "40001" || pqErr.Code == "40P01":
			return ErrEditConflict
		}
	}

	if isTransactionConflict(err) {
		return ErrEditConflict
	}

	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// isTransactionConflict reports DuckDB's optimistic concurrency failures,
// such as "write-write conflict" or "Conflict on tuple deletion".
func isTransactionConflict(err error) bool {
	var duckErr *duckdb.Error
	if errors.As(err, &duckErr) && duckErr.Type == duckdb.ErrorTypeTransaction {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "write-write conflict") || strings.Contains(msg, "conflict on tuple")
}

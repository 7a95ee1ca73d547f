package repository

import (
	"database/sql"

	"github.com/google/uuid"
)

// nullUUID maps an optional uuid to its nullable column value.
func nullUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// nullIfEmpty maps "" to NULL so optional text columns stay NULL instead of
// accumulating empty strings.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func parseNullUUID(ns sql.NullString) *uuid.UUID {
	if !ns.Valid {
		return nil
	}
	parsed, err := uuid.Parse(ns.String)
	if err != nil {
		return nil
	}
	return &parsed
}

// Package sqlutil converts between Go pointer/zero-value types and the
// database/sql Null* wrapper types the Postgres repository reads and
// writes through database/sql's driver interface.
package sqlutil

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ToNullString converts a *string to sql.NullString, treating both nil
// and an empty string as NULL.
func ToNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// ToNullStringValue converts a string value directly, treating an
// empty string as NULL.
func ToNullStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullUUID converts a *uuid.UUID to sql.NullString (UUIDs are stored
// as their string form), treating nil as NULL.
func ToNullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

// ToNullTime converts a *time.Time to sql.NullTime, treating nil as NULL.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// ToNullInt64 converts a *int64 to sql.NullInt64, treating nil as NULL.
func ToNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// FromNullString converts a sql.NullString back to *string, returning
// nil when the column was NULL.
func FromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// FromNullTime converts a sql.NullTime back to *time.Time, returning
// nil when the column was NULL.
func FromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// FromNullInt64 converts a sql.NullInt64 back to *int64, returning nil
// when the column was NULL.
func FromNullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

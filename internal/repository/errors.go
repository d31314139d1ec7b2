package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Storage-level errors translated from driver errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate key")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// translate maps driver errors onto the package's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		if pqErr.Constraint == "users_email_key" {
			return ErrDuplicateEmail
		}
		return ErrDuplicate
	}
	return err
}

// expectOne returns ErrNotFound when an UPDATE/DELETE touched no rows.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Package repository persists the restaurant aggregates with GORM.
//
// Aggregate roots carry a Version column. Save methods update the root with
// "WHERE version = ?" inside the same transaction that appends child rows,
// so a concurrent writer that loaded an older copy gets ErrStaleVersion
// instead of silently overwriting stock levels, history or ratings.
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrStaleVersion is returned when the record changed since it was loaded
	ErrStaleVersion = errors.New("record was modified by another request")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate record")
)

// translateError maps driver errors onto the package sentinels
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	// Check for duplicates (works with PostgreSQL, MySQL and SQLite)
	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique") {
		return ErrDuplicate
	}
	return err
}

// saveVersioned writes every column of an aggregate root whose primary key is
// set, guarded by its current version. version is bumped on success.
func saveVersioned(tx *gorm.DB, model interface{}, version *int) error {
	expected := *version
	*version = expected + 1

	res := tx.Model(model).
		Where("version = ?", expected).
		Select("*").
		Omit(clause.Associations, "created_at").
		Updates(model)
	if res.Error != nil {
		*version = expected
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		*version = expected
		return ErrStaleVersion
	}
	return nil
}

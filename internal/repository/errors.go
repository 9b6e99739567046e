// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrAlreadyFollowing is returned when a follow edge already exists.
var ErrAlreadyFollowing = errors.New("already following")

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// isCheckConstraintError checks if a DB error is a CHECK constraint violation.
func isCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL check violation SQLSTATE 23514
	return strings.Contains(msg, "check constraint") || strings.Contains(msg, "23514")
}

package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-scheduler/internal/domain/repositories"
)

// translateCreateError maps unique violations to repositories.ErrDuplicateKey
func translateCreateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repositories.ErrDuplicateKey
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key") {
		return repositories.ErrDuplicateKey
	}
	return err
}

func defaultLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

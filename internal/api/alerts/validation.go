package alerts

import (
	"errors"
	"strings"

	"github.com/scriptflow/scriptflow/internal/models"
)

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 100 {
		return errors.New("name must be 100 characters or less")
	}
	return nil
}

func ValidateCondition(condition string) error {
	if strings.TrimSpace(condition) == "" {
		return errors.New("condition_query is required")
	}
	if len(condition) > 1000 {
		return errors.New("condition_query must be 1000 characters or less")
	}
	return nil
}

func ValidateThreshold(threshold int) error {
	if threshold < 1 {
		return errors.New("threshold must be at least 1")
	}
	return nil
}

func ValidateWindow(minutes int) error {
	if minutes < 1 {
		return errors.New("time_window_minutes must be at least 1")
	}
	return nil
}

func ValidateStatus(s string) (models.AlertStatus, error) {
	switch s {
	case "active", "paused", "triggered":
		return models.AlertStatus(s), nil
	default:
		return "", errors.New("status must be 'active', 'paused', or 'triggered'")
	}
}

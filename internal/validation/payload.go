package validation

import (
	"github.com/zfogg/searchstudy/internal/config"
	"github.com/zfogg/searchstudy/internal/errors"
)

// ClampPercent bounds a scroll depth to [0, 100].
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// First returns the first non-nil error.
func First(errs ...*errors.APIError) *errors.APIError {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// AttentionCheck validates the background survey's attention-check answer.
//
// The question text asks participants to choose 1. The deployed handler
// rejects 1, and that behaviour is kept as the default (legacy) until the
// study owners decide which is intended; instructed mode requires 1.
type AttentionCheck struct {
	Mode     string
	Expected int
}

// NewAttentionCheck returns the check for mode.
func NewAttentionCheck(mode string) AttentionCheck {
	if mode == "" {
		mode = config.AttentionCheckLegacy
	}
	return AttentionCheck{Mode: mode, Expected: 1}
}

// Validate returns an error when answer fails the check.
func (a AttentionCheck) Validate(field string, answer int) *errors.APIError {
	switch a.Mode {
	case config.AttentionCheckInstructed:
		if answer != a.Expected {
			return errors.AttentionCheckFailed(field)
		}
	default:
		if answer == a.Expected {
			return errors.AttentionCheckFailed(field)
		}
	}
	return nil
}

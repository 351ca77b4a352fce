package domain

import (
	"errors"
	"fmt"
)

var (
	ErrModelNotFound   = errors.New("model not found")
	ErrNotFoundInStage = errors.New("file not found in stage")
	ErrExternalCall    = errors.New("external call failed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPreviewClosed   = errors.New("preview already closed")
	ErrPageOutOfRange  = errors.New("page index out of range")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

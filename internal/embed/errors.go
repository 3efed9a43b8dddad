package embed

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFileRef is returned for a file reference without a type suffix.
	ErrInvalidFileRef = errors.New("invalid file reference")
	// ErrEmptyPanelSet is returned when no file could be loaded.
	ErrEmptyPanelSet = errors.New("no files could be loaded")
)

// LoadError reports a retrieval or highlighting failure for one file.
type LoadError struct {
	Ref   string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Ref, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

package cachemodel

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("cache configuration error")
	// ErrInvalidProblem matches every *InvalidProblemError via errors.Is.
	ErrInvalidProblem = errors.New("invalid matrix problem")
)

// ConfigurationError reports a cache geometry whose parameters are
// non-positive or mutually inconsistent. The model cannot run with it.
type ConfigurationError struct {
	Param string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cache geometry: %s: %s", e.Param, e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// InvalidProblemError reports a non-positive matrix dimension or element size.
type InvalidProblemError struct {
	Param string
	Value int64
}

func (e *InvalidProblemError) Error() string {
	return fmt.Sprintf("matmul problem: %s must be > 0, got %d", e.Param, e.Value)
}

func (e *InvalidProblemError) Unwrap() error { return ErrInvalidProblem }

package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateKey    = errors.New("duplicate key violation")
	ErrInvalidID       = errors.New("invalid ID format")
	ErrModelNotTrained = errors.New("no trained model artifact available")
)

// DataIncompleteError indicates a required pre-race field is missing.
// It is surfaced to the caller and never retried.
type DataIncompleteError struct {
	RaceID string
	Field  string
}

func (e *DataIncompleteError) Error() string {
	return fmt.Sprintf("incomplete pre-race data for race %s: missing %s", e.RaceID, e.Field)
}

// UnknownCircuitError indicates a circuit absent from the static
// track metadata table.
type UnknownCircuitError struct {
	Circuit string
}

func (e *UnknownCircuitError) Error() string {
	return fmt.Sprintf("unknown circuit %q: not present in track metadata table", e.Circuit)
}

// InsufficientHistoryError indicates training was attempted with too
// few races for rating and form features to carry signal.
type InsufficientHistoryError struct {
	Races   int
	Minimum int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: %d races available, %d required", e.Races, e.Minimum)
}

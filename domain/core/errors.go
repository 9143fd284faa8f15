package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrItemNotFound    = fmt.Errorf("%w: test item", ErrNotFound)
	ErrHolidayNotFound = fmt.Errorf("%w: holiday definition", ErrNotFound)
	ErrRecordNotFound  = fmt.Errorf("%w: query record", ErrNotFound)

	// Oracle errors
	ErrConventionAmbiguous  = errors.New("convention ambiguous")
	ErrComputationAmbiguous = errors.New("computation ambiguous")
	ErrYearOutOfRange       = errors.New("year outside oracle table range")

	// Corpus errors
	ErrOverlap      = errors.New("few-shot example year overlaps target year")
	ErrHashMismatch = errors.New("hash mismatch")

	// Scoring errors
	ErrParse         = errors.New("response failed schema parse")
	ErrAttemptBudget = errors.New("attempt budget exhausted")

	// Analysis errors
	ErrUnderpowered     = errors.New("cell below minimum n")
	ErrFamilyTampered   = errors.New("hypothesis family changed after registration")
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// Error constructors with context

func NewConventionAmbiguousError(holiday string, conventions []string) error {
	return fmt.Errorf("%w: %s supports %v and none was pinned", ErrConventionAmbiguous, holiday, conventions)
}

func NewComputationAmbiguousError(holiday string, year int, reason string) error {
	return fmt.Errorf("%w: %s in %d (%s)", ErrComputationAmbiguous, holiday, year, reason)
}

func NewOverlapError(itemID string, exampleYear, targetYear int) error {
	return fmt.Errorf("%w: item %s example year %d vs target %d", ErrOverlap, itemID, exampleYear, targetYear)
}

func NewParseError(detail string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %v", ErrParse, detail, cause)
	}
	return fmt.Errorf("%w: %s", ErrParse, detail)
}

// Error checking helpers

func IsConventionAmbiguous(err error) bool {
	return errors.Is(err, ErrConventionAmbiguous)
}

func IsComputationAmbiguous(err error) bool {
	return errors.Is(err, ErrComputationAmbiguous)
}

func IsOverlap(err error) bool {
	return errors.Is(err, ErrOverlap)
}

func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

func IsOracleError(err error) bool {
	return errors.Is(err, ErrConventionAmbiguous) ||
		errors.Is(err, ErrComputationAmbiguous) ||
		errors.Is(err, ErrYearOutOfRange)
}

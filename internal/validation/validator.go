// =============================================================================
// Geo Format Converter - Validation Engine
// =============================================================================
//
// This module validates location records after parsing and before
// serializing. It covers:
//   - Coordinate range checks (finite, lat in [-90, 90], lon in [-180, 180])
//   - Name presence
//   - Numeric altitude
//   - Duplicate points
//
// VALIDATION STRATEGY:
//   Record() is the strict check used by every parser and serializer. It
//   returns the first fatal problem of a single record.
//
//   Validator.ValidateAll() walks a whole collection and collects every
//   problem, separating fatal errors from warnings. It backs the
//   'validate' command.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/geo-format-converter/internal/coords"
	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation problem.
type ValidationError struct {
	// Severity is SeverityError (the record cannot be converted) or
	// SeverityWarning (conversion proceeds).
	Severity string

	// Index is the zero-based record position in the collection.
	Index int

	// Name is the record name, if any.
	Name string

	// Field is the offending field: "latitude", "longitude", "name" or an
	// attribute key.
	Field string

	// Value is the offending value rendered as text.
	Value string

	// Rule is the rule that was violated.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Record %d (%q), Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Index,
		e.Name,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validating a collection.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all problems, warnings included, in record order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// RecordsValidated is the number of records inspected.
	RecordsValidated int
}

// =============================================================================
// STRICT RECORD CHECK
// =============================================================================

// Record checks the coordinate invariant of a single record. It returns nil
// or a problem with severity "error". The index is filled in by the caller if
// needed.
func Record(r types.Record) *ValidationError {
	if err := coords.CheckLatitude(r.Latitude); err != nil {
		return &ValidationError{
			Severity: SeverityError,
			Name:     r.Name,
			Field:    "latitude",
			Value:    coords.FormatDegrees(r.Latitude),
			Rule:     "range",
			Message:  err.Error(),
		}
	}
	if err := coords.CheckLongitude(r.Longitude); err != nil {
		return &ValidationError{
			Severity: SeverityError,
			Name:     r.Name,
			Field:    "longitude",
			Value:    coords.FormatDegrees(r.Longitude),
			Rule:     "range",
			Message:  err.Error(),
		}
	}
	return nil
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for collection validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first fatal error.
	// Default: false
	StopOnFirstError bool

	// TreatWarningsAsErrors marks the result invalid when any warning exists.
	// Default: false
	TreatWarningsAsErrors bool

	// RequireName turns an empty record name into a fatal error instead of
	// a warning.
	// Default: false
	RequireName bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{}
}

// Validator validates whole collections.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator() *Validator {
	return &Validator{options: DefaultValidationOptions()}
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// ValidateAll validates every record and returns a detailed result.
func (v *Validator) ValidateAll(c types.Collection) *ValidationResult {
	result := &ValidationResult{
		IsValid:          true,
		Errors:           make([]*ValidationError, 0),
		RecordsValidated: len(c),
	}

	seen := make(map[string]int, len(c))
	for i, r := range c {
		problems := v.ValidateRecord(i, r)

		key := fmt.Sprintf("%s|%v|%v", r.Name, r.Latitude, r.Longitude)
		if first, dup := seen[key]; dup {
			problems = append(problems, &ValidationError{
				Severity: SeverityWarning,
				Index:    i,
				Name:     r.Name,
				Field:    "record",
				Rule:     "duplicate",
				Message:  fmt.Sprintf("duplicate of record %d", first),
			})
		} else {
			seen[key] = i
		}

		for _, p := range problems {
			result.Errors = append(result.Errors, p)
			if p.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
				if v.options.StopOnFirstError {
					return result
				}
				continue
			}
			result.WarningCount++
			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}

	return result
}

// ValidateRecord returns every problem found in a single record.
func (v *Validator) ValidateRecord(index int, r types.Record) []*ValidationError {
	var problems []*ValidationError

	if ve := Record(r); ve != nil {
		ve.Index = index
		problems = append(problems, ve)
	}

	if strings.TrimSpace(r.Name) == "" {
		severity := SeverityWarning
		if v.options.RequireName {
			severity = SeverityError
		}
		problems = append(problems, &ValidationError{
			Severity: severity,
			Index:    index,
			Field:    "name",
			Rule:     "required",
			Message:  "record has no name",
		})
	}

	if alt, ok := r.Attr(types.AltitudeKey); ok && alt != "" {
		if _, err := coords.ParseDegrees(alt); err != nil {
			problems = append(problems, &ValidationError{
				Severity: SeverityWarning,
				Index:    index,
				Name:     r.Name,
				Field:    types.AltitudeKey,
				Value:    alt,
				Rule:     "numeric",
				Message:  "altitude is not numeric",
			})
		}
	}

	return problems
}

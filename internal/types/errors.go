package types

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrParse             = errors.New("parse error")
	ErrSerialize         = errors.New("serialize error")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// NoRecord is used as Index when a failure is not tied to a single record,
// for example a malformed document root.
const NoRecord = -1

// ParseError reports malformed input. The whole document is rejected.
type ParseError struct {
	Format Format
	// Index is the zero-based record position, or NoRecord.
	Index int
	// Name is the record name when it was read before the failure.
	Name   string
	Field  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return formatFailure(e.Format.String()+" parse error", e.Index, e.Name, e.Field, e.Reason, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// SerializeError reports a collection that cannot be written in one target
// format. It never affects other targets of the same conversion.
type SerializeError struct {
	Format Format
	Index  int
	Name   string
	Field  string
	Reason string
	Err    error
}

func (e *SerializeError) Error() string {
	return formatFailure(e.Format.String()+" serialize error", e.Index, e.Name, e.Field, e.Reason, e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

func (e *SerializeError) Is(target error) bool { return target == ErrSerialize }

// UnsupportedFormatError reports an unknown format tag or file extension.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Name == "" {
		return "unsupported format"
	}
	return fmt.Sprintf("unsupported format %q", e.Name)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

func formatFailure(prefix string, index int, name, field, reason string, cause error) string {
	var b strings.Builder
	b.WriteString(prefix)
	if index != NoRecord {
		fmt.Fprintf(&b, ": record %d", index)
		if name != "" {
			fmt.Fprintf(&b, " (%q)", name)
		}
	}
	if field != "" {
		fmt.Fprintf(&b, ", field %s", field)
	}
	if reason != "" {
		b.WriteString(": ")
		b.WriteString(reason)
	}
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

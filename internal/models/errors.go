package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every typed error below matches exactly one of these with errors.Is.
var (
	ErrFormat   = errors.New("invalid file format")
	ErrRange    = errors.New("index out of range")
	ErrNotFound = errors.New("not found")
	ErrConfig   = errors.New("invalid configuration")
)

// FormatError reports a blob that cannot be decoded or a container path that is
// missing or holds the wrong kind of value.
type FormatError struct {
	Op   string
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		fmt.Fprintf(&b, " %q", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// RangeError reports a channel or scan index outside its valid range [0, Limit).
type RangeError struct {
	What  string
	Index int
	Limit int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [0, %d)", e.What, e.Index, e.Limit)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

// NotFoundError reports a mass outside every channel window or name patterns
// that resolved to no channel.
type NotFoundError struct {
	Mass     float64
	Patterns []string
}

func (e *NotFoundError) Error() string {
	if len(e.Patterns) > 0 {
		return fmt.Sprintf("no channel matches %q", e.Patterns)
	}
	return fmt.Sprintf("mass %.2f not found", e.Mass)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConfigError reports a missing or invalid option.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

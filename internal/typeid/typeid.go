// Package typeid mints and checks the prefixed ids that name live sessions.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const PrefixSession = "sess"

var ErrWrongPrefix = errors.New("wrong id prefix")

func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

// NewSessionID returns a fresh sess_… id.
func NewSessionID() string { return New(PrefixSession) }

// Validate reports whether id is a well-formed typeid carrying prefix.
func Validate(id, prefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse id %q: %w", id, err)
	}
	if got := parsed.Prefix(); got != prefix {
		return fmt.Errorf("%w: %q is %q, want %q", ErrWrongPrefix, id, got, prefix)
	}
	return nil
}

// ValidateSession is Validate for session ids.
func ValidateSession(id string) error { return Validate(id, PrefixSession) }

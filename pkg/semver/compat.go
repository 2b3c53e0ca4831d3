// Package semver checks invocation envelope versions against the range an actor host accepts.
package semver

import (
	"errors"
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:compat"

// DefaultAcceptRange accepts every 1.x envelope.
const DefaultAcceptRange = "^1.0.0"

// ErrIncompatible is wrapped when a version falls outside the accepted range.
var ErrIncompatible = errors.New("incompatible envelope version")

// Acceptor holds a parsed version range. It is immutable and safe for concurrent use.
type Acceptor struct {
	raw        string
	constraint *masterminds.Constraints
}

// NewAcceptor parses a range such as "^1.0.0" or ">=1.0.0, <3". An empty range uses DefaultAcceptRange.
func NewAcceptor(rangeStr string) (*Acceptor, error) {
	rangeStr = strings.TrimSpace(rangeStr)
	if rangeStr == "" {
		rangeStr = DefaultAcceptRange
	}
	c, err := masterminds.NewConstraint(rangeStr)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid version range %q: %w", logPrefix, rangeStr, err)
	}
	return &Acceptor{raw: rangeStr, constraint: c}, nil
}

// Range returns the range the acceptor was built from.
func (a *Acceptor) Range() string { return a.raw }

// Check returns nil when version satisfies the range.
func (a *Acceptor) Check(version string) error {
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%s - %w: %q is not a version: %v", logPrefix, ErrIncompatible, version, err)
	}
	if ok, errs := a.constraint.Validate(v); !ok {
		reason := "outside " + a.raw
		if len(errs) > 0 {
			reason = errs[0].Error()
		}
		return fmt.Errorf("%s - %w: %s", logPrefix, ErrIncompatible, reason)
	}
	return nil
}

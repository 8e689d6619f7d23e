// Package shared contains error kinds shared by the bot's adapters and platform packages.
package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrValidation marks bad configuration or input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDependencyFailure marks a failing external dependency (database, Telegram API).
	ErrDependencyFailure = errors.New("dependency failure")
	// ErrTimeout marks an operation that ran out of time.
	ErrTimeout = errors.New("operation timed out")
	// ErrInternal marks a programming or invariant error.
	ErrInternal = errors.New("internal error")
)

// Kind classifies an error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindDependencyFailure
	KindTimeout
	KindCanceled
	KindInternal
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindDependencyFailure:
		return "DependencyFailure"
	case KindTimeout:
		return "Timeout"
	case KindCanceled:
		return "Canceled"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

var sentinels = map[Kind]error{
	KindValidation:        ErrValidation,
	KindNotFound:          ErrNotFound,
	KindDependencyFailure: ErrDependencyFailure,
	KindTimeout:           ErrTimeout,
	KindInternal:          ErrInternal,
}

// priority order used by KindOf; cancellation and timeouts win over everything else.
var ordered = []Kind{KindValidation, KindNotFound, KindDependencyFailure, KindInternal}

// KindOf walks the error chain and returns the first matching kind.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if IsCanceled(err) {
		return KindCanceled
	}
	if IsTimeout(err) {
		return KindTimeout
	}
	for _, k := range ordered {
		if errors.Is(err, sentinels[k]) {
			return k
		}
	}
	return KindUnknown
}

// HasKind reports whether KindOf(err) == kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SentinelOf returns the sentinel error of the kind, nil for KindUnknown and KindCanceled.
func SentinelOf(kind Kind) error {
	return sentinels[kind]
}

// MarkKind wraps err with the sentinel of kind so that errors.Is works for both.
// Marking an error with a kind it already has returns it unchanged.
func MarkKind(err error, kind Kind) error {
	sentinel := SentinelOf(kind)
	if err == nil {
		return sentinel
	}
	if sentinel == nil || KindOf(err) == kind {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Wrap prefixes err with a context message. A nil err stays nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if msg == "" {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsCanceled reports a canceled context in the chain.
func IsCanceled(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}

// IsTimeout reports deadline, ErrTimeout or a net timeout in the chain.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsValidation reports a validation error in the chain.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsDependencyFailure reports a dependency failure in the chain.
func IsDependencyFailure(err error) bool { return errors.Is(err, ErrDependencyFailure) }

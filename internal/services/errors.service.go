package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"corewatch/internal/models"
)

// ErrorKind classifies a stream failure for the retry policy
type ErrorKind int

const (
	KindOpen ErrorKind = iota
	KindReceive
	KindDecode
	KindAuth
	KindTLS
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindReceive:
		return "receive"
	case KindDecode:
		return "decode"
	case KindAuth:
		return "auth"
	case KindTLS:
		return "tls"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var (
	// ErrUnauthorized is returned when the core answers 401
	ErrUnauthorized = errors.New("unauthorized: check the controller secret")
	// ErrDecode wraps frames that could not be decoded
	ErrDecode = errors.New("frame decode failed")
	// ErrNotStarted is returned by Resume before any Start
	ErrNotStarted = errors.New("stream not started")
	// ErrUnknownChannel is returned for a channel name the monitor does not own
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrUnknownAction is returned for a stream command other than
	// start, pause, resume or stop
	ErrUnknownAction = errors.New("unknown action")
)

// StreamError is a classified failure of one channel
type StreamError struct {
	Kind    ErrorKind
	Channel models.Channel
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Channel, e.Kind, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error may clear up on its own. Auth and TLS
// failures need a configuration change, decode failures never reach the
// retry policy and cancellation is not a failure at all.
func (e *StreamError) Retryable() bool {
	return e.Kind == KindOpen || e.Kind == KindReceive
}

// classifyError wraps err with a kind, upgrading it to auth, tls or
// cancelled when the cause says so.
func classifyError(channel models.Channel, kind ErrorKind, err error) *StreamError {
	var se *StreamError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, context.Canceled):
		kind = KindCancelled
	case errors.Is(err, ErrUnauthorized):
		kind = KindAuth
	case errors.Is(err, ErrDecode):
		kind = KindDecode
	case isTLSError(err):
		kind = KindTLS
	}
	return &StreamError{Kind: kind, Channel: channel, Err: err}
}

// isTLSError detects certificate and handshake failures
func isTLSError(err error) bool {
	if err == nil {
		return false
	}
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
		recordHeader     tls.RecordHeaderError
	)
	if errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification) ||
		errors.As(err, &recordHeader) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "x509:") || strings.Contains(msg, "tls:")
}

package bluez

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ErrorKind classifies failures of outbound BlueZ requests.
type ErrorKind string

const (
	KindTransport        ErrorKind = "transport"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindTimeout          ErrorKind = "timeout"
	KindNotFound         ErrorKind = "not_found"
	KindInProgress       ErrorKind = "in_progress"
	KindCanceled         ErrorKind = "canceled"
)

// GatewayError is returned by every Gateway operation that fails.
type GatewayError struct {
	Kind ErrorKind
	Op   string          // D-Bus method, e.g. "Device1.Connect"
	Path dbus.ObjectPath // target object, may be empty
	Err  error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying transport error.
func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is allows errors.Is to compare GatewayError values by Kind
func (e *GatewayError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors, one per kind
var (
	ErrTransport        = &GatewayError{Kind: KindTransport}
	ErrPermissionDenied = &GatewayError{Kind: KindPermissionDenied}
	ErrTimeout          = &GatewayError{Kind: KindTimeout}
	ErrNotFound         = &GatewayError{Kind: KindNotFound}
	ErrInProgress       = &GatewayError{Kind: KindInProgress}
	ErrCanceled         = &GatewayError{Kind: KindCanceled}
)

var errorKindsByName = map[string]ErrorKind{
	"org.bluez.Error.NotPermitted":             KindPermissionDenied,
	"org.bluez.Error.NotAuthorized":            KindPermissionDenied,
	"org.bluez.Error.AuthenticationFailed":     KindPermissionDenied,
	"org.freedesktop.DBus.Error.AccessDenied":  KindPermissionDenied,
	"org.freedesktop.DBus.Error.NoReply":       KindTimeout,
	"org.freedesktop.DBus.Error.Timeout":       KindTimeout,
	"org.freedesktop.DBus.Error.TimedOut":      KindTimeout,
	"org.freedesktop.DBus.Error.UnknownObject": KindNotFound,
	"org.freedesktop.DBus.Error.UnknownMethod": KindNotFound,
	"org.bluez.Error.DoesNotExist":             KindNotFound,
	"org.bluez.Error.InProgress":               KindInProgress,
	"org.bluez.Error.AlreadyConnected":         KindInProgress,
	"org.bluez.Error.AlreadyExists":            KindInProgress,
}

// NormalizeError wraps err into a GatewayError with a kind derived from the
// D-Bus error name or context state. A nil err stays nil and an err that is
// already a GatewayError is returned unchanged.
func NormalizeError(op string, path dbus.ObjectPath, err error) error {
	if err == nil {
		return nil
	}

	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return err
	}

	return &GatewayError{Kind: classifyError(err), Op: op, Path: path, Err: err}
}

func classifyError(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}

	var derr dbus.Error
	if errors.As(err, &derr) {
		if kind, ok := errorKindsByName[derr.Name]; ok {
			return kind
		}
	}
	var pderr *dbus.Error
	if errors.As(err, &pderr) && pderr != nil {
		if kind, ok := errorKindsByName[pderr.Name]; ok {
			return kind
		}
	}
	return KindTransport
}

// KindOf returns the kind of a wrapped GatewayError, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

package bluez

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
		kind     ErrorKind
	}{
		{name: "not permitted", err: dbus.Error{Name: "org.bluez.Error.NotPermitted"}, expected: ErrPermissionDenied, kind: KindPermissionDenied},
		{name: "not authorized", err: dbus.Error{Name: "org.bluez.Error.NotAuthorized"}, expected: ErrPermissionDenied, kind: KindPermissionDenied},
		{name: "access denied", err: dbus.Error{Name: "org.freedesktop.DBus.Error.AccessDenied"}, expected: ErrPermissionDenied, kind: KindPermissionDenied},
		{name: "no reply", err: dbus.Error{Name: "org.freedesktop.DBus.Error.NoReply"}, expected: ErrTimeout, kind: KindTimeout},
		{name: "unknown object", err: dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownObject"}, expected: ErrNotFound, kind: KindNotFound},
		{name: "does not exist", err: dbus.Error{Name: "org.bluez.Error.DoesNotExist"}, expected: ErrNotFound, kind: KindNotFound},
		{name: "in progress", err: dbus.Error{Name: "org.bluez.Error.InProgress"}, expected: ErrInProgress, kind: KindInProgress},
		{name: "pointer dbus error", err: &dbus.Error{Name: "org.bluez.Error.AlreadyConnected"}, expected: ErrInProgress, kind: KindInProgress},
		{name: "wrapped dbus error", err: fmt.Errorf("call: %w", dbus.Error{Name: "org.bluez.Error.NotPermitted"}), expected: ErrPermissionDenied, kind: KindPermissionDenied},
		{name: "unmapped dbus error", err: dbus.Error{Name: "org.bluez.Error.Failed"}, expected: ErrTransport, kind: KindTransport},
		{name: "plain error", err: errors.New("connection reset"), expected: ErrTransport, kind: KindTransport},
		{name: "deadline", err: context.DeadlineExceeded, expected: ErrTimeout, kind: KindTimeout},
		{name: "canceled", err: fmt.Errorf("call: %w", context.Canceled), expected: ErrCanceled, kind: KindCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NormalizeError("Device1.Connect", devPath, tt.err)

			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, tt.err, errors.Unwrap(err))
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestNormalizeError_Passthrough(t *testing.T) {
	assert.NoError(t, NormalizeError("op", "", nil))

	original := &GatewayError{Kind: KindTimeout, Op: "ReadValue"}
	wrapped := fmt.Errorf("outer: %w", original)
	assert.Same(t, wrapped, NormalizeError("Connect", devPath, wrapped))
}

func TestGatewayError_Error(t *testing.T) {
	err := &GatewayError{
		Kind: KindPermissionDenied,
		Op:   "org.bluez.GattCharacteristic1.ReadValue",
		Path: charPath,
		Err:  errors.New("Read not permitted"),
	}
	assert.Equal(t,
		"org.bluez.GattCharacteristic1.ReadValue: permission_denied ("+string(charPath)+"): Read not permitted",
		err.Error())

	assert.Equal(t, "timeout", ErrTimeout.Error())

	var nilErr *GatewayError
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestGatewayError_IsComparesKind(t *testing.T) {
	err := NormalizeError("Connect", devPath, dbus.Error{Name: "org.bluez.Error.InProgress"})

	assert.True(t, errors.Is(err, ErrInProgress))
	assert.False(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, errors.New("in_progress")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

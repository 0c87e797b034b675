package main

import (
	"errors"
	"fmt"

	"github.com/srg/nuimo-probe/internal/bluez"
)

// Command-level errors
var (
	// ErrBatteryNotFound indicates the device exports no Battery Level characteristic yet.
	ErrBatteryNotFound = errors.New("battery level characteristic not found")
)

// FormatUserError turns err into a message for the terminal. BlueZ failures
// get a hint matching their kind.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	switch bluez.KindOf(err) {
	case bluez.KindPermissionDenied:
		return fmt.Sprintf("%s\nhint: check the D-Bus policy for org.bluez or pair the device first", err)
	case bluez.KindNotFound:
		return fmt.Sprintf("%s\nhint: is bluetoothd running and has the device been discovered?", err)
	case bluez.KindTimeout:
		return fmt.Sprintf("%s\nhint: the device may be out of range or asleep", err)
	case bluez.KindInProgress:
		return fmt.Sprintf("%s\nhint: another operation on this object is still running", err)
	}

	if errors.Is(err, ErrBatteryNotFound) {
		return fmt.Sprintf("%s\nhint: connect the device and wait until its services are resolved", err)
	}
	return err.Error()
}

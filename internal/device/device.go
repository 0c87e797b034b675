package device

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// State is the connection state of a device as derived from registry membership.
type State string

const (
	StateUnknown    State = "unknown"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
)

// Connector issues Connect requests for device object paths.
// bluez.Gateway satisfies it.
type Connector interface {
	Connect(ctx context.Context, device dbus.ObjectPath) error
}

// Entry is a point-in-time view of one tracked device.
type Entry struct {
	Path    dbus.ObjectPath `json:"path"`
	Address string          `json:"address"`
	State   State           `json:"state"`
}

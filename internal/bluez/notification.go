package bluez

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// NotificationKind identifies which BlueZ signal a Notification came from.
type NotificationKind int

const (
	KindInterfacesAdded NotificationKind = iota + 1
	KindInterfacesRemoved
	KindPropertiesChanged
)

func (k NotificationKind) String() string {
	switch k {
	case KindInterfacesAdded:
		return SignalInterfacesAdded
	case KindInterfacesRemoved:
		return SignalInterfacesRemoved
	case KindPropertiesChanged:
		return SignalPropertiesChanged
	default:
		return fmt.Sprintf("NotificationKind(%d)", int(k))
	}
}

// Notification is a decoded BlueZ signal. It is one of
// InterfacesAdded, InterfacesRemoved or PropertiesChanged.
type Notification interface {
	Kind() NotificationKind
	ObjectPath() dbus.ObjectPath
}

// InterfacesAdded is emitted when BlueZ exports a new object or adds interfaces to one.
type InterfacesAdded struct {
	Path       dbus.ObjectPath
	Interfaces Interfaces
}

func (InterfacesAdded) Kind() NotificationKind        { return KindInterfacesAdded }
func (n InterfacesAdded) ObjectPath() dbus.ObjectPath { return n.Path }

// InterfacesRemoved is emitted when BlueZ drops interfaces from an object.
type InterfacesRemoved struct {
	Path       dbus.ObjectPath
	Interfaces []string
}

func (InterfacesRemoved) Kind() NotificationKind        { return KindInterfacesRemoved }
func (n InterfacesRemoved) ObjectPath() dbus.ObjectPath { return n.Path }

// PropertiesChanged carries the originating object path along with the signal body.
type PropertiesChanged struct {
	Path        dbus.ObjectPath
	Interface   string
	Changed     map[string]dbus.Variant
	Invalidated []string
}

func (PropertiesChanged) Kind() NotificationKind        { return KindPropertiesChanged }
func (n PropertiesChanged) ObjectPath() dbus.ObjectPath { return n.Path }

// Bool returns a boolean changed property.
func (n PropertiesChanged) Bool(name string) (value bool, present bool, err error) {
	v, ok := n.Changed[name]
	if !ok {
		return false, false, nil
	}
	b, ok := v.Value().(bool)
	if !ok {
		return false, true, fmt.Errorf("property %s has type %s, want bool", name, v.Signature())
	}
	return b, true, nil
}

// DecodeSignal converts a raw D-Bus signal into a Notification.
// It returns an error for signals that are not BlueZ notifications or have a malformed body.
func DecodeSignal(sig *dbus.Signal) (Notification, error) {
	if sig == nil {
		return nil, fmt.Errorf("nil signal")
	}

	switch sig.Name {
	case ObjectManagerInterface + "." + SignalInterfacesAdded:
		if len(sig.Body) < 2 {
			return nil, fmt.Errorf("%s: body has %d values, want 2", sig.Name, len(sig.Body))
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected path type %T", sig.Name, sig.Body[0])
		}
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected interfaces type %T", sig.Name, sig.Body[1])
		}
		return InterfacesAdded{Path: path, Interfaces: Interfaces(ifaces)}, nil

	case ObjectManagerInterface + "." + SignalInterfacesRemoved:
		if len(sig.Body) < 2 {
			return nil, fmt.Errorf("%s: body has %d values, want 2", sig.Name, len(sig.Body))
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected path type %T", sig.Name, sig.Body[0])
		}
		ifaces, ok := sig.Body[1].([]string)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected interfaces type %T", sig.Name, sig.Body[1])
		}
		return InterfacesRemoved{Path: path, Interfaces: ifaces}, nil

	case PropertiesInterface + "." + SignalPropertiesChanged:
		if len(sig.Body) < 2 {
			return nil, fmt.Errorf("%s: body has %d values, want at least 2", sig.Name, len(sig.Body))
		}
		iface, ok := sig.Body[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected interface type %T", sig.Name, sig.Body[0])
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected changed type %T", sig.Name, sig.Body[1])
		}
		var invalidated []string
		if len(sig.Body) > 2 {
			invalidated, _ = sig.Body[2].([]string)
		}
		return PropertiesChanged{
			Path:        sig.Path,
			Interface:   iface,
			Changed:     changed,
			Invalidated: invalidated,
		}, nil
	}

	return nil, fmt.Errorf("unsupported signal %q", sig.Name)
}

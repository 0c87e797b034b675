package testutils

import (
	"fmt"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/srg/nuimo-probe/internal/bluez"
)

// Test device address and object paths below the default adapter.
const (
	TestDeviceAddress = "AA:BB:CC:DD:EE:FF"

	TestDevicePath         = dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF")
	TestServicePath        = dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF/service000f")
	TestCharacteristicPath = dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF/service000f/char0010")
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
	Hook   *logtest.Hook
}

// NewTestHelper creates a test helper whose logger records every entry in Hook.
func NewTestHelper(t *testing.T) *TestHelper {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
		Hook:   hook,
	}
}

// Messages returns the messages logged at level, oldest first.
func (h *TestHelper) Messages(level logrus.Level) []string {
	var out []string
	for _, e := range h.Hook.AllEntries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// EntryWithMessage returns the most recent entry with msg, or nil.
func (h *TestHelper) EntryWithMessage(msg string) *logrus.Entry {
	entries := h.Hook.AllEntries()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Message == msg {
			return entries[i]
		}
	}
	return nil
}

// SnapshotBuilder assembles a bluez.ManagedObjects snapshot in insertion order.
type SnapshotBuilder struct {
	objects *bluez.ManagedObjects
}

// NewSnapshotBuilder starts an empty snapshot.
func NewSnapshotBuilder() *SnapshotBuilder {
	return &SnapshotBuilder{objects: bluez.NewManagedObjects(nil)}
}

// WithObject adds an object with the given interfaces.
func (b *SnapshotBuilder) WithObject(path dbus.ObjectPath, ifaces bluez.Interfaces) *SnapshotBuilder {
	b.objects.Set(path, ifaces)
	return b
}

// WithDevice adds a Device1 object for the given address.
func (b *SnapshotBuilder) WithDevice(path dbus.ObjectPath, address string) *SnapshotBuilder {
	return b.WithObject(path, bluez.Interfaces{
		bluez.DeviceInterface: {
			bluez.PropAddress: dbus.MakeVariant(address),
		},
	})
}

// WithService adds a GattService1 object with the given UUID.
func (b *SnapshotBuilder) WithService(path dbus.ObjectPath, uuid string) *SnapshotBuilder {
	return b.WithObject(path, bluez.Interfaces{
		bluez.GattServiceInterface: {
			bluez.PropUUID: dbus.MakeVariant(uuid),
		},
	})
}

// WithCharacteristic adds a GattCharacteristic1 object with the given UUID.
func (b *SnapshotBuilder) WithCharacteristic(path dbus.ObjectPath, uuid string) *SnapshotBuilder {
	return b.WithObject(path, bluez.Interfaces{
		bluez.GattCharacteristicIface: {
			bluez.PropUUID: dbus.MakeVariant(uuid),
		},
	})
}

// Build returns the snapshot.
func (b *SnapshotBuilder) Build() *bluez.ManagedObjects {
	return b.objects
}

// DevicePath returns the object path of a device below hci0 for the n-th test address.
func DevicePath(n int) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("/org/bluez/hci0/dev_00_00_00_00_00_%02X", n))
}

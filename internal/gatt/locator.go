// Package gatt locates GATT objects of interest in a BlueZ object snapshot.
package gatt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/srg/nuimo-probe/internal/bledb"
	"github.com/srg/nuimo-probe/internal/bluez"
)

// ErrEmptyValue is returned when a battery level read produced no bytes.
var ErrEmptyValue = errors.New("empty battery level value")

// Locator finds the battery characteristic in a managed-object snapshot.
//
// By default any characteristic-shaped path is accepted as soon as some
// battery service exists in the snapshot; the candidate is not required to
// live under that service. WithStrictNesting adds the containment check.
type Locator struct {
	classifier  *bluez.Classifier
	batteryUUID string
	strict      bool
}

// Option configures a Locator.
type Option func(*Locator)

// WithStrictNesting requires the candidate characteristic to be nested under a
// matching battery service.
func WithStrictNesting() Option {
	return func(l *Locator) { l.strict = true }
}

// WithServiceUUID overrides the service UUID treated as the battery service.
func WithServiceUUID(uuid string) Option {
	return func(l *Locator) { l.batteryUUID = uuid }
}

// NewLocator creates a Locator. A nil classifier uses bluez.DefaultClassifier.
func NewLocator(classifier *bluez.Classifier, opts ...Option) *Locator {
	if classifier == nil {
		classifier = bluez.DefaultClassifier
	}
	l := &Locator{
		classifier:  classifier,
		batteryUUID: bluez.BatteryServiceUUID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Classifier returns the classifier used to recognise service and characteristic paths.
func (l *Locator) Classifier() *bluez.Classifier {
	return l.classifier
}

// Strict reports whether strict nesting is enabled.
func (l *Locator) Strict() bool {
	return l.strict
}

// FindBatteryService returns the first service-shaped path in snapshot order
// whose GattService1.UUID is the battery service UUID.
func (l *Locator) FindBatteryService(objects *bluez.ManagedObjects) (dbus.ObjectPath, bool) {
	services := l.batteryServices(objects)
	if len(services) == 0 {
		return "", false
	}
	return services[0], true
}

// FindBatteryCharacteristic returns candidate when it is a characteristic path
// and the snapshot contains a battery service.
func (l *Locator) FindBatteryCharacteristic(objects *bluez.ManagedObjects, candidate dbus.ObjectPath) (dbus.ObjectPath, bool) {
	services := l.batteryServices(objects)
	if len(services) == 0 {
		return "", false
	}
	if !l.classifier.IsCharacteristic(candidate) {
		return "", false
	}
	if !l.strict {
		return candidate, true
	}
	for _, svc := range services {
		if strings.HasPrefix(string(candidate), string(svc)+"/") {
			return candidate, true
		}
	}
	return "", false
}

// FindDeviceBatteryLevel returns the Battery Level characteristic nested under
// a battery service of device. Unlike FindBatteryCharacteristic the containment
// and the characteristic UUID are both checked.
func (l *Locator) FindDeviceBatteryLevel(objects *bluez.ManagedObjects, device dbus.ObjectPath) (dbus.ObjectPath, bool) {
	for _, svc := range l.batteryServices(objects) {
		if l.classifier.Classify(svc).Device != device {
			continue
		}
		for pair := objects.Oldest(); pair != nil; pair = pair.Next() {
			if !l.classifier.IsCharacteristic(pair.Key) || !strings.HasPrefix(string(pair.Key), string(svc)+"/") {
				continue
			}
			uuid, ok := pair.Value.StringProperty(bluez.GattCharacteristicIface, bluez.PropUUID)
			if ok && bledb.Equal(uuid, bluez.BatteryLevelCharUUID) {
				return pair.Key, true
			}
		}
	}
	return "", false
}

func (l *Locator) batteryServices(objects *bluez.ManagedObjects) []dbus.ObjectPath {
	if objects == nil {
		return nil
	}
	var found []dbus.ObjectPath
	for pair := objects.Oldest(); pair != nil; pair = pair.Next() {
		if !l.classifier.IsService(pair.Key) {
			continue
		}
		uuid, ok := pair.Value.StringProperty(bluez.GattServiceInterface, bluez.PropUUID)
		if !ok || !bledb.Equal(uuid, l.batteryUUID) {
			continue
		}
		found = append(found, pair.Key)
	}
	return found
}

// BatteryLevel decodes a Battery Level (0x2A19) value into a percentage.
func BatteryLevel(value []byte) (uint8, error) {
	if len(value) == 0 {
		return 0, ErrEmptyValue
	}
	if value[0] > 100 {
		return value[0], fmt.Errorf("battery level %d out of range 0-100", value[0])
	}
	return value[0], nil
}

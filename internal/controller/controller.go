// Package controller reacts to BlueZ notifications: it registers and connects
// devices, and reads the battery level once the battery characteristic shows up.
package controller

import (
	"context"
	"errors"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/device"
	"github.com/srg/nuimo-probe/internal/gatt"
	"github.com/srg/nuimo-probe/internal/ringchan"
)

// BatteryReading is published whenever a battery characteristic read succeeds.
type BatteryReading struct {
	Device         dbus.ObjectPath `json:"device"`
	Address        string          `json:"address"`
	Characteristic dbus.ObjectPath `json:"characteristic"`
	Level          uint8           `json:"level"`
	Raw            []byte          `json:"raw"`
	At             time.Time       `json:"at"`
}

// Options configures a Controller.
type Options struct {
	ReadOffset  uint16 // ReadValue offset; 0 by default, 8 yields nothing for a one-octet level
	EventBuffer int    // capacity of the battery reading ring
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() *Options {
	return &Options{EventBuffer: 64}
}

// Controller binds BlueZ notifications to the device registry and GATT locator.
type Controller struct {
	gateway  bluez.Gateway
	registry *device.Registry
	locator  *gatt.Locator
	logger   *logrus.Logger
	opts     Options

	subs   []Subscription
	events *ringchan.Ring[BatteryReading]
	now    func() time.Time
}

// New creates a Controller. Nil opts or logger fall back to defaults.
func New(gateway bluez.Gateway, registry *device.Registry, locator *gatt.Locator, logger *logrus.Logger, opts *Options) *Controller {
	if logger == nil {
		logger = logrus.New()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultOptions().EventBuffer
	}
	c := &Controller{
		gateway:  gateway,
		registry: registry,
		locator:  locator,
		logger:   logger,
		opts:     o,
		events:   ringchan.New[BatteryReading](o.EventBuffer),
		now:      time.Now,
	}
	c.subs = c.subscriptionTable()
	return c
}

// Registry returns the device registry the controller mutates.
func (c *Controller) Registry() *device.Registry {
	return c.registry
}

// Events returns battery readings as they are taken. Old readings are dropped
// when the consumer falls behind.
func (c *Controller) Events() <-chan BatteryReading {
	return c.events.C()
}

// OnInterfacesAdded handles InterfacesAdded. It fetches a fresh object
// snapshot, reads the battery level when n.Path is the battery
// characteristic, and then always registers n.Path as a device candidate.
func (c *Controller) OnInterfacesAdded(ctx context.Context, n bluez.InterfacesAdded) {
	log := c.logger.WithField("path", n.Path)
	log.Info("Interfaces added")

	objects, err := c.gateway.GetManagedObjects(ctx)
	if err != nil {
		log.WithError(err).WithField("kind", bluez.KindOf(err)).Error("Failed to fetch managed objects")
	} else {
		if svc, ok := c.locator.FindBatteryService(objects); ok {
			log.WithField("service", svc).Debug("Battery service present")
		}
		if char, ok := c.locator.FindBatteryCharacteristic(objects, n.Path); ok {
			_ = c.ReadBattery(ctx, char)
		}
	}

	c.registry.RegisterAndConnect(ctx, n.Path)
}

// OnInterfacesRemoved handles InterfacesRemoved. The registry is left untouched.
func (c *Controller) OnInterfacesRemoved(_ context.Context, n bluez.InterfacesRemoved) {
	c.logger.WithFields(logrus.Fields{
		"path":       n.Path,
		"interfaces": n.Interfaces,
	}).Info("Interfaces removed")
}

// OnPropertiesChanged handles Device1 PropertiesChanged. Every notification
// re-triggers a connect attempt for the originating device.
func (c *Controller) OnPropertiesChanged(ctx context.Context, n bluez.PropertiesChanged) {
	c.logger.WithFields(logrus.Fields{
		"path":        n.Path,
		"changed":     variantValues(n.Changed),
		"invalidated": n.Invalidated,
	}).Info("Properties changed")

	c.registry.OnPropertiesChanged(n.Path, n.Changed, n.Invalidated)
	c.registry.RegisterAndConnect(ctx, n.Path)
}

// ReadBattery reads the characteristic at path and publishes the level.
// Failures are logged and returned so callers may inspect the kind; the
// event handlers ignore the result.
func (c *Controller) ReadBattery(ctx context.Context, path dbus.ObjectPath) error {
	log := c.logger.WithFields(logrus.Fields{
		"path":   path,
		"offset": c.opts.ReadOffset,
	})

	value, err := c.gateway.ReadValue(ctx, path, c.opts.ReadOffset)
	if err != nil {
		log.WithError(err).WithField("kind", bluez.KindOf(err)).Error("Battery read failed")
		return err
	}

	level, err := gatt.BatteryLevel(value)
	if errors.Is(err, gatt.ErrEmptyValue) {
		log.WithError(err).Warn("Unexpected battery value")
		return err
	}
	if err != nil {
		log.WithError(err).WithField("raw", value).Warn("Unexpected battery value")
	}
	log.WithFields(logrus.Fields{
		"level": level,
		"raw":   value,
	}).Info("Battery value")

	owner := c.locator.Classifier().Classify(path)
	c.events.Send(BatteryReading{
		Device:         owner.Device,
		Address:        owner.Address,
		Characteristic: path,
		Level:          level,
		Raw:            value,
		At:             c.now(),
	})
	return err
}

// Connect asks BlueZ to connect path once. Unlike the event handlers it does
// not touch the registry. Failures are logged and returned.
func (c *Controller) Connect(ctx context.Context, path dbus.ObjectPath) error {
	return c.deviceRequest(ctx, "Connect", path, c.gateway.Connect)
}

// Disconnect asks BlueZ to disconnect path. Failures are logged and returned.
func (c *Controller) Disconnect(ctx context.Context, path dbus.ObjectPath) error {
	return c.deviceRequest(ctx, "Disconnect", path, c.gateway.Disconnect)
}

// Pair asks BlueZ to pair with path. Failures are logged and returned.
func (c *Controller) Pair(ctx context.Context, path dbus.ObjectPath) error {
	return c.deviceRequest(ctx, "Pair", path, c.gateway.Pair)
}

func (c *Controller) deviceRequest(ctx context.Context, op string, path dbus.ObjectPath, fn func(context.Context, dbus.ObjectPath) error) error {
	log := c.logger.WithFields(logrus.Fields{"path": path, "op": op})
	log.Info("Device request")
	if err := fn(ctx, path); err != nil {
		log.WithError(err).WithField("kind", bluez.KindOf(err)).Error("Device request failed")
		return err
	}
	return nil
}

func variantValues(m map[string]dbus.Variant) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v.Value()
	}
	return out
}

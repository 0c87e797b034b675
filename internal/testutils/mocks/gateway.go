// Package mocks holds testify mocks for the BlueZ gateway.
package mocks

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/stretchr/testify/mock"
)

// Gateway is a testify mock implementing bluez.Gateway.
type Gateway struct {
	mock.Mock
}

var _ bluez.Gateway = (*Gateway)(nil)

func (m *Gateway) GetManagedObjects(ctx context.Context) (*bluez.ManagedObjects, error) {
	args := m.Called(ctx)
	objects, _ := args.Get(0).(*bluez.ManagedObjects)
	return objects, args.Error(1)
}

func (m *Gateway) GetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	args := m.Called(ctx, path, iface, name)
	v, _ := args.Get(0).(dbus.Variant)
	return v, args.Error(1)
}

func (m *Gateway) Connect(ctx context.Context, device dbus.ObjectPath) error {
	return m.Called(ctx, device).Error(0)
}

func (m *Gateway) Disconnect(ctx context.Context, device dbus.ObjectPath) error {
	return m.Called(ctx, device).Error(0)
}

func (m *Gateway) Pair(ctx context.Context, device dbus.ObjectPath) error {
	return m.Called(ctx, device).Error(0)
}

func (m *Gateway) ReadValue(ctx context.Context, characteristic dbus.ObjectPath, offset uint16) ([]byte, error) {
	args := m.Called(ctx, characteristic, offset)
	value, _ := args.Get(0).([]byte)
	return value, args.Error(1)
}

func (m *Gateway) SetDiscoveryFilter(ctx context.Context, filter bluez.DiscoveryFilter) error {
	return m.Called(ctx, filter).Error(0)
}

func (m *Gateway) StartDiscovery(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Gateway) StopDiscovery(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// BusGateway extends Gateway with the session methods of a bus client.
type BusGateway struct {
	Gateway
}

func (m *BusGateway) Adapter() dbus.ObjectPath {
	args := m.Called()
	p, _ := args.Get(0).(dbus.ObjectPath)
	return p
}

func (m *BusGateway) Subscribe(ctx context.Context, rules []bluez.MatchRule) (<-chan bluez.Notification, error) {
	args := m.Called(ctx, rules)
	switch ch := args.Get(0).(type) {
	case chan bluez.Notification:
		return ch, args.Error(1)
	case <-chan bluez.Notification:
		return ch, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BusGateway) Close() error {
	return m.Called().Error(0)
}

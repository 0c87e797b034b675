package devicefactory

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/bluez"
)

// Gateway is a bluez.Gateway that can also deliver notifications and be closed.
// *bluez.Client satisfies it.
type Gateway interface {
	bluez.Gateway
	Adapter() dbus.ObjectPath
	Subscribe(ctx context.Context, rules []bluez.MatchRule) (<-chan bluez.Notification, error)
	Close() error
}

// GatewayFactory opens a gateway to the BlueZ daemon on the system bus.
// This is a variable so that it can be overridden in tests.
var GatewayFactory = func(ctx context.Context, opts *bluez.ClientOptions, logger *logrus.Logger) (Gateway, error) {
	client, err := bluez.Dial(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

package bluez

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/groutine"
	"github.com/srg/nuimo-probe/internal/ringchan"
)

// busConn is the slice of *dbus.Conn the client needs.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	BusObject() dbus.BusObject
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Adapter     dbus.ObjectPath
	CallTimeout time.Duration // per-call deadline, 0 means none
	EventBuffer int           // ring capacity for decoded notifications
}

// DefaultClientOptions returns options for hci0 with no call deadline.
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Adapter:     DefaultAdapterPath,
		EventBuffer: 64,
	}
}

// Client implements Gateway on top of the system D-Bus.
type Client struct {
	conn   busConn
	opts   ClientOptions
	logger *logrus.Logger

	mu      sync.Mutex
	signals []chan *dbus.Signal
}

var _ Gateway = (*Client)(nil)

// Dial connects to the system bus and checks that the adapter exists.
func Dial(ctx context.Context, opts *ClientOptions, logger *logrus.Logger) (*Client, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}

	c := NewClient(conn, opts, logger)
	if _, err := c.GetProperty(ctx, c.opts.Adapter, AdapterInterface, PropAddress); err != nil {
		_ = conn.Close()
		if KindOf(err) == KindNotFound {
			return nil, fmt.Errorf("bluetooth adapter %s does not exist: %w", c.opts.Adapter, err)
		}
		return nil, fmt.Errorf("failed to query bluetooth adapter %s: %w", c.opts.Adapter, err)
	}
	return c, nil
}

// NewClient wraps an established bus connection.
func NewClient(conn busConn, opts *ClientOptions, logger *logrus.Logger) *Client {
	if opts == nil {
		opts = DefaultClientOptions()
	}
	if logger == nil {
		logger = logrus.New()
	}
	o := *opts
	if o.Adapter == "" {
		o.Adapter = DefaultAdapterPath
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultClientOptions().EventBuffer
	}
	return &Client{conn: conn, opts: o, logger: logger}
}

// Adapter returns the adapter object path the client drives.
func (c *Client) Adapter() dbus.ObjectPath {
	return c.opts.Adapter
}

// Close detaches all signal channels and closes the bus connection.
func (c *Client) Close() error {
	c.mu.Lock()
	for _, ch := range c.signals {
		c.conn.RemoveSignal(ch)
	}
	c.signals = nil
	c.mu.Unlock()
	return c.conn.Close()
}

// call invokes method on path and normalises the error. out, if non-nil, receives the reply.
func (c *Client) call(ctx context.Context, path dbus.ObjectPath, method string, out []interface{}, args ...interface{}) error {
	if c.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	}).Debug("D-Bus call")

	call := c.conn.Object(BusName, path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return NormalizeError(method, path, call.Err)
	}
	if len(out) > 0 {
		if err := call.Store(out...); err != nil {
			return NormalizeError(method, path, fmt.Errorf("failed to decode reply: %w", err))
		}
	}
	return nil
}

// GetManagedObjects fetches a fresh snapshot of every object BlueZ exports.
func (c *Client) GetManagedObjects(ctx context.Context) (*ManagedObjects, error) {
	var raw map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := c.call(ctx, ObjectManagerPath, ObjectManagerInterface+".GetManagedObjects", []interface{}{&raw}); err != nil {
		return nil, err
	}
	return NewManagedObjects(raw), nil
}

// GetProperty reads a single property of an object.
func (c *Client) GetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := c.call(ctx, path, PropertiesInterface+".Get", []interface{}{&v}, iface, name)
	return v, err
}

// Connect asks BlueZ to connect to a device.
func (c *Client) Connect(ctx context.Context, device dbus.ObjectPath) error {
	return c.call(ctx, device, DeviceInterface+".Connect", nil)
}

// Disconnect asks BlueZ to disconnect a device.
func (c *Client) Disconnect(ctx context.Context, device dbus.ObjectPath) error {
	return c.call(ctx, device, DeviceInterface+".Disconnect", nil)
}

// Pair starts pairing with a device.
func (c *Client) Pair(ctx context.Context, device dbus.ObjectPath) error {
	return c.call(ctx, device, DeviceInterface+".Pair", nil)
}

// ReadValue reads a characteristic value starting at offset.
func (c *Client) ReadValue(ctx context.Context, characteristic dbus.ObjectPath, offset uint16) ([]byte, error) {
	var value []byte
	opts := map[string]dbus.Variant{"offset": dbus.MakeVariant(offset)}
	if err := c.call(ctx, characteristic, GattCharacteristicIface+".ReadValue", []interface{}{&value}, opts); err != nil {
		return nil, err
	}
	return value, nil
}

// SetDiscoveryFilter installs a discovery filter on the adapter.
func (c *Client) SetDiscoveryFilter(ctx context.Context, filter DiscoveryFilter) error {
	return c.call(ctx, c.opts.Adapter, AdapterInterface+".SetDiscoveryFilter", nil, filter.Dict())
}

// StartDiscovery starts discovery on the adapter.
func (c *Client) StartDiscovery(ctx context.Context) error {
	return c.call(ctx, c.opts.Adapter, AdapterInterface+".StartDiscovery", nil)
}

// StopDiscovery stops discovery on the adapter.
func (c *Client) StopDiscovery(ctx context.Context) error {
	return c.call(ctx, c.opts.Adapter, AdapterInterface+".StopDiscovery", nil)
}

// Subscribe installs rules with AddMatch and returns decoded notifications.
// The channel is closed when ctx is done. Undecodable signals are logged and skipped.
func (c *Client) Subscribe(ctx context.Context, rules []MatchRule) (<-chan Notification, error) {
	for _, rule := range rules {
		if err := c.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.AddMatch", 0, rule.String()).Err; err != nil {
			return nil, NormalizeError("AddMatch", "", fmt.Errorf("rule %q: %w", rule.String(), err))
		}
		c.logger.WithField("rule", rule.String()).Debug("Added match rule")
	}

	raw := make(chan *dbus.Signal, c.opts.EventBuffer)
	c.conn.Signal(raw)
	c.mu.Lock()
	c.signals = append(c.signals, raw)
	c.mu.Unlock()

	out := ringchan.New[Notification](c.opts.EventBuffer)
	groutine.Go(ctx, "dbus-signal-pump", func(ctx context.Context) {
		defer out.Close()
		defer c.removeSignal(raw)
		c.pump(ctx, raw, out)
	})

	return out.C(), nil
}

func (c *Client) pump(ctx context.Context, raw <-chan *dbus.Signal, out *ringchan.Ring[Notification]) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-raw:
			if !ok {
				return
			}
			n, err := DecodeSignal(sig)
			if err != nil {
				c.logger.WithError(err).WithField("path", sig.Path).Debug("Skipping signal")
				continue
			}
			if out.Send(n) {
				c.logger.WithField("dropped", out.Dropped()).Warn("Notification buffer full, dropped oldest")
			}
		}
	}
}

func (c *Client) removeSignal(ch chan *dbus.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.signals {
		if s == ch {
			c.conn.RemoveSignal(ch)
			c.signals = append(c.signals[:i], c.signals[i+1:]...)
			return
		}
	}
}

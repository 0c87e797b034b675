package device

import (
	"context"
	"sort"

	"github.com/cornelk/hashmap"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/bluez"
)

// Registry holds the known and connected device sets.
// It is safe for concurrent use.
type Registry struct {
	known      *hashmap.Map[dbus.ObjectPath, string] // path -> address
	connected  *hashmap.Map[dbus.ObjectPath, struct{}]
	connector  Connector
	classifier *bluez.Classifier
	logger     *logrus.Logger
}

// NewRegistry creates an empty registry. A nil classifier uses bluez.DefaultClassifier.
func NewRegistry(connector Connector, classifier *bluez.Classifier, logger *logrus.Logger) *Registry {
	if classifier == nil {
		classifier = bluez.DefaultClassifier
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		known:      hashmap.New[dbus.ObjectPath, string](),
		connected:  hashmap.New[dbus.ObjectPath, struct{}](),
		connector:  connector,
		classifier: classifier,
		logger:     logger,
	}
}

// RegisterAndConnect adds path to the known set and issues a Connect request
// when path is a device path. The request is sent on every call, even for
// devices that are already connected. Connect failures are logged and
// swallowed. It reports whether path was a device.
func (r *Registry) RegisterAndConnect(ctx context.Context, path dbus.ObjectPath) bool {
	c := r.classifier.Classify(path)
	if c.Role != bluez.RoleDevice {
		return false
	}

	if r.known.Insert(path, c.Address) {
		r.logger.WithFields(logrus.Fields{
			"path":    path,
			"address": c.Address,
		}).Info("Registered device")
	}

	r.logger.WithField("path", path).Info("Trying to connect")
	if err := r.connector.Connect(ctx, path); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"path": path,
			"kind": bluez.KindOf(err),
		}).Error("Connect request failed")
	}
	return true
}

// OnPropertiesChanged applies a Device1 PropertiesChanged notification.
// Connected=true adds path to the connected set, Connected=false removes it.
// ServicesResolved is only logged.
func (r *Registry) OnPropertiesChanged(path dbus.ObjectPath, changed map[string]dbus.Variant, invalidated []string) {
	n := bluez.PropertiesChanged{Path: path, Interface: bluez.DeviceInterface, Changed: changed, Invalidated: invalidated}
	log := r.logger.WithField("path", path)

	connected, ok, err := n.Bool(bluez.PropConnected)
	switch {
	case err != nil:
		log.WithError(err).Warn("Ignoring malformed Connected property")
	case ok && connected:
		r.connected.Set(path, struct{}{})
		log.Info("Connected")
	case ok:
		r.connected.Del(path)
		log.Info("Disconnected")
	}

	if _, ok := changed[bluez.PropServicesResolved]; ok {
		log.WithField("value", changed[bluez.PropServicesResolved].Value()).Info("Services resolved")
	}
}

// IsKnown reports whether path was ever registered.
func (r *Registry) IsKnown(path dbus.ObjectPath) bool {
	_, ok := r.known.Get(path)
	return ok
}

// IsConnected reports whether the last Connected notification for path was true.
func (r *Registry) IsConnected(path dbus.ObjectPath) bool {
	_, ok := r.connected.Get(path)
	return ok
}

// State derives the connection state of path from set membership.
func (r *Registry) State(path dbus.ObjectPath) State {
	switch {
	case r.IsConnected(path):
		return StateConnected
	case r.IsKnown(path):
		return StateConnecting
	default:
		return StateUnknown
	}
}

// Known returns the known device paths in sorted order.
func (r *Registry) Known() []dbus.ObjectPath {
	paths := make([]dbus.ObjectPath, 0, r.known.Len())
	r.known.Range(func(p dbus.ObjectPath, _ string) bool {
		paths = append(paths, p)
		return true
	})
	sortPaths(paths)
	return paths
}

// Connected returns the connected device paths in sorted order.
func (r *Registry) Connected() []dbus.ObjectPath {
	paths := make([]dbus.ObjectPath, 0, r.connected.Len())
	r.connected.Range(func(p dbus.ObjectPath, _ struct{}) bool {
		paths = append(paths, p)
		return true
	})
	sortPaths(paths)
	return paths
}

// Entries returns a snapshot of every tracked device, known or connected.
func (r *Registry) Entries() []Entry {
	seen := make(map[dbus.ObjectPath]struct{})
	var paths []dbus.ObjectPath
	for _, p := range append(r.Known(), r.Connected()...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	sortPaths(paths)

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, Entry{
			Path:    p,
			Address: r.classifier.Classify(p).Address,
			State:   r.State(p),
		})
	}
	return entries
}

func sortPaths(paths []dbus.ObjectPath) {
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
}

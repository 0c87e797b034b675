package bluez

import (
	"context"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Interfaces maps interface names to their property bags, as in GetManagedObjects.
type Interfaces map[string]map[string]dbus.Variant

// ManagedObjects is a snapshot of every object BlueZ exposes, in a stable order.
type ManagedObjects = orderedmap.OrderedMap[dbus.ObjectPath, Interfaces]

// NewManagedObjects builds an ordered snapshot from the raw GetManagedObjects
// reply. Paths are inserted in lexical order so "first match" is deterministic.
func NewManagedObjects(raw map[dbus.ObjectPath]map[string]map[string]dbus.Variant) *ManagedObjects {
	paths := make([]dbus.ObjectPath, 0, len(raw))
	for p := range raw {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	objects := orderedmap.New[dbus.ObjectPath, Interfaces]()
	for _, p := range paths {
		objects.Set(p, Interfaces(raw[p]))
	}
	return objects
}

// StringProperty returns a string property of iface, if present.
func (i Interfaces) StringProperty(iface, name string) (string, bool) {
	props, ok := i[iface]
	if !ok {
		return "", false
	}
	v, ok := props[name]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// DiscoveryFilter narrows which advertisements BlueZ reports during discovery.
type DiscoveryFilter struct {
	Transport string
	UUIDs     []string
}

// Dict renders the filter as the a{sv} argument of Adapter1.SetDiscoveryFilter.
func (f DiscoveryFilter) Dict() map[string]dbus.Variant {
	d := make(map[string]dbus.Variant, 2)
	if f.Transport != "" {
		d["Transport"] = dbus.MakeVariant(f.Transport)
	}
	if len(f.UUIDs) > 0 {
		d["UUIDs"] = dbus.MakeVariant(append([]string(nil), f.UUIDs...))
	}
	return d
}

// Gateway is the subset of the BlueZ D-Bus API the controller consumes.
// Every method returns a *GatewayError on failure.
type Gateway interface {
	GetManagedObjects(ctx context.Context) (*ManagedObjects, error)
	GetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error)

	Connect(ctx context.Context, device dbus.ObjectPath) error
	Disconnect(ctx context.Context, device dbus.ObjectPath) error
	Pair(ctx context.Context, device dbus.ObjectPath) error

	ReadValue(ctx context.Context, characteristic dbus.ObjectPath, offset uint16) ([]byte, error)

	SetDiscoveryFilter(ctx context.Context, filter DiscoveryFilter) error
	StartDiscovery(ctx context.Context) error
	StopDiscovery(ctx context.Context) error
}

// MatchRule describes a D-Bus signal subscription.
type MatchRule struct {
	Interface string
	Member    string
	Path      dbus.ObjectPath
	Arg0      string
}

// String renders the rule in AddMatch syntax.
func (r MatchRule) String() string {
	parts := []string{"type='signal'"}
	if r.Interface != "" {
		parts = append(parts, "interface='"+r.Interface+"'")
	}
	if r.Member != "" {
		parts = append(parts, "member='"+r.Member+"'")
	}
	if r.Path != "" {
		parts = append(parts, "path='"+string(r.Path)+"'")
	}
	if r.Arg0 != "" {
		parts = append(parts, "arg0='"+r.Arg0+"'")
	}
	return strings.Join(parts, ",")
}

package bluez

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/godbus/dbus/v5"
	"tinygo.org/x/bluetooth"
)

// Role is the kind of BlueZ object an object path refers to.
type Role int

const (
	RoleUnrecognized Role = iota
	RoleDevice
	RoleService
	RoleCharacteristic
)

func (r Role) String() string {
	switch r {
	case RoleDevice:
		return "device"
	case RoleService:
		return "service"
	case RoleCharacteristic:
		return "characteristic"
	default:
		return "unrecognized"
	}
}

// Classification is the result of classifying an object path.
// Device and Address are set for every recognised role.
type Classification struct {
	Path    dbus.ObjectPath
	Role    Role
	Device  dbus.ObjectPath
	Address string
}

// Recognized reports whether the path matched any known shape.
func (c Classification) Recognized() bool {
	return c.Role != RoleUnrecognized
}

// Classifier maps object paths below a single adapter to roles.
type Classifier struct {
	adapter        dbus.ObjectPath
	deviceRe       *regexp.Regexp
	serviceRe      *regexp.Regexp
	characteristic *regexp.Regexp
}

// DefaultClassifier classifies paths below /org/bluez/hci0.
var DefaultClassifier = NewClassifier(DefaultAdapterPath)

// NewClassifier builds a classifier for devices owned by adapter.
//
// Device octets are matched upper-case and service/characteristic indices
// lower-case, which is how BlueZ names its objects. No case folding is applied.
func NewClassifier(adapter dbus.ObjectPath) *Classifier {
	devicePrefix := regexp.QuoteMeta(string(adapter) + "/dev")
	device := devicePrefix + `((?:_[0-9A-F]{2}){6})`
	service := device + `/service[0-9a-f]{4}`
	char := service + `/char[0-9a-f]{4}`

	return &Classifier{
		adapter:        adapter,
		deviceRe:       regexp.MustCompile("^" + device + "$"),
		serviceRe:      regexp.MustCompile("^" + service + "$"),
		characteristic: regexp.MustCompile("^" + char + "$"),
	}
}

// Adapter returns the adapter path the classifier is anchored at.
func (c *Classifier) Adapter() dbus.ObjectPath {
	return c.adapter
}

// Classify returns the role of path. The most specific pattern is tried first.
func (c *Classifier) Classify(path dbus.ObjectPath) Classification {
	p := string(path)
	result := Classification{Path: path}

	var m []string
	switch {
	case c.characteristic.MatchString(p):
		result.Role = RoleCharacteristic
		m = c.characteristic.FindStringSubmatch(p)
	case c.serviceRe.MatchString(p):
		result.Role = RoleService
		m = c.serviceRe.FindStringSubmatch(p)
	case c.deviceRe.MatchString(p):
		result.Role = RoleDevice
		m = c.deviceRe.FindStringSubmatch(p)
	default:
		return result
	}

	mac, err := bluetooth.ParseMAC(strings.ReplaceAll(strings.TrimPrefix(m[1], "_"), "_", ":"))
	if err != nil {
		// unreachable with the patterns above, but never hand out a bad address
		return Classification{Path: path}
	}
	result.Address = mac.String()
	result.Device = dbus.ObjectPath(string(c.adapter) + "/dev" + m[1])
	return result
}

// IsDevice reports whether path has the device shape.
func (c *Classifier) IsDevice(path dbus.ObjectPath) bool {
	return c.Classify(path).Role == RoleDevice
}

// IsService reports whether path has the GATT service shape.
func (c *Classifier) IsService(path dbus.ObjectPath) bool {
	return c.Classify(path).Role == RoleService
}

// IsCharacteristic reports whether path has the GATT characteristic shape.
func (c *Classifier) IsCharacteristic(path dbus.ObjectPath) bool {
	return c.Classify(path).Role == RoleCharacteristic
}

// DevicePath converts a MAC address (AA:BB:CC:DD:EE:FF) to the device object path below adapter.
func DevicePath(adapter dbus.ObjectPath, address string) (dbus.ObjectPath, error) {
	// ParseMAC only accepts uppercase hex.
	mac, err := bluetooth.ParseMAC(strings.ToUpper(strings.TrimSpace(address)))
	if err != nil {
		return "", fmt.Errorf("invalid device address %q: %w", address, err)
	}
	s := strings.ReplaceAll(mac.String(), ":", "_")
	return dbus.ObjectPath(string(adapter) + "/dev_" + s), nil
}

// ResolveDevice accepts either an object path or a MAC address and returns the device path.
func ResolveDevice(c *Classifier, target string) (dbus.ObjectPath, error) {
	if strings.HasPrefix(target, "/") {
		path := dbus.ObjectPath(target)
		if !c.IsDevice(path) {
			return "", fmt.Errorf("%q is not a device path below %s", target, c.adapter)
		}
		return path, nil
	}
	return DevicePath(c.adapter, target)
}

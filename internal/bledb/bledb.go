// Package bledb resolves GATT UUIDs to human readable names.
//
// Names for the Nuimo peripheral family and the standard services it
// advertises are kept locally; everything else falls back to the go-ble
// assigned-numbers table.
package bledb

import (
	"encoding/hex"
	"strings"

	"github.com/go-ble/ble"
)

// sigBaseSuffix is the Bluetooth SIG base UUID without the 16-bit alias.
const sigBaseSuffix = "00001000800000805f9b34fb"

var knownNames = map[string]string{
	"f29b1525cb1940f3be5c7241ecb82fd2": "Nuimo",
	"f29b1523cb1940f3be5c7241ecb82fd1": "Nuimo LED Matrix (legacy)",
	"1800":                             "Generic Access",
	"1801":                             "Generic Attribute",
	"180a":                             "Device Information",
	"180f":                             "Battery Service",
	"2a19":                             "Battery Level",
}

// NormalizeUUID converts a UUID string to lowercase hex without dashes, braces
// or a 0x prefix. SIG base UUIDs (0000xxxx-0000-1000-8000-00805f9b34fb) are
// shortened to their 16-bit form. Returns "" for malformed input.
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.TrimPrefix(s, "0x")
	s = strings.Trim(s, "{}")
	s = strings.ReplaceAll(s, "-", "")

	switch len(s) {
	case 4, 8:
	case 32:
		if strings.HasPrefix(s, "0000") && strings.HasSuffix(s, sigBaseSuffix) {
			s = s[4:8]
		}
	default:
		return ""
	}
	if _, err := hex.DecodeString(s); err != nil {
		return ""
	}
	return s
}

// NormalizeUUIDs normalizes a slice of UUID strings, dropping malformed ones.
func NormalizeUUIDs(uuids []string) []string {
	out := make([]string, 0, len(uuids))
	for _, u := range uuids {
		if n := NormalizeUUID(u); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Equal reports whether two UUID strings denote the same UUID.
func Equal(a, b string) bool {
	na, nb := NormalizeUUID(a), NormalizeUUID(b)
	return na != "" && na == nb
}

// KnownName returns the name for uuid, or "" if it is not known.
func KnownName(uuid string) string {
	n := NormalizeUUID(uuid)
	if n == "" {
		return ""
	}
	if name, ok := knownNames[n]; ok {
		return name
	}
	u, err := ble.Parse(n)
	if err != nil {
		return ""
	}
	return ble.Name(u)
}

// Describe formats uuid with its name for log output, e.g. "180f (Battery Service)".
func Describe(uuid string) string {
	if name := KnownName(uuid); name != "" {
		return uuid + " (" + name + ")"
	}
	return uuid
}

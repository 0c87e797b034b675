// Package device tracks BlueZ device objects seen by the controller.
//
// The Registry owns two sets keyed by device object path:
//   - known: every device path that was registered and sent a Connect request
//   - connected: devices whose most recent Connected property was true
//
// A device never leaves the known set. Disconnects only shrink the connected set.
package device

package bluez

import "github.com/godbus/dbus/v5"

// D-Bus names used to talk to the BlueZ daemon.
const (
	BusName = "org.bluez"

	ObjectManagerPath      = dbus.ObjectPath("/")
	ObjectManagerInterface = "org.freedesktop.DBus.ObjectManager"
	PropertiesInterface    = "org.freedesktop.DBus.Properties"

	AdapterInterface        = "org.bluez.Adapter1"
	DeviceInterface         = "org.bluez.Device1"
	GattServiceInterface    = "org.bluez.GattService1"
	GattCharacteristicIface = "org.bluez.GattCharacteristic1"

	// DefaultAdapterPath is the object path of the first HCI controller.
	DefaultAdapterPath = dbus.ObjectPath("/org/bluez/hci0")
)

// Signal members delivered by BlueZ.
const (
	SignalInterfacesAdded   = "InterfacesAdded"
	SignalInterfacesRemoved = "InterfacesRemoved"
	SignalPropertiesChanged = "PropertiesChanged"
)

// Device1 properties the controller reacts to.
const (
	PropConnected        = "Connected"
	PropServicesResolved = "ServicesResolved"
	PropUUID             = "UUID"
	PropAddress          = "Address"
	PropName             = "Name"
	PropAlias            = "Alias"
)

// TransportLE restricts discovery to Low Energy peripherals.
const TransportLE = "le"

// Nuimo service fingerprints.
const (
	// NuimoServiceUUID is the primary Nuimo input service.
	NuimoServiceUUID = "f29b1525-cb19-40f3-be5c-7241ecb82fd2"

	// LegacyLEDMatrixServiceUUID is the LED matrix service exposed by older firmware.
	LegacyLEDMatrixServiceUUID = "f29b1523-cb19-40f3-be5c-7241ecb82fd1"

	// GenericAttributeServiceUUID is advertised by the peripheral family but has no dedicated use here.
	GenericAttributeServiceUUID = "00001801-0000-1000-8000-00805f9b34fb"

	// DeviceInformationServiceUUID is advertised by the peripheral family but has no dedicated use here.
	DeviceInformationServiceUUID = "0000180a-0000-1000-8000-00805f9b34fb"

	// BatteryServiceUUID identifies the GATT battery service.
	BatteryServiceUUID = "0000180f-0000-1000-8000-00805f9b34fb"

	// BatteryLevelCharUUID is the battery level characteristic inside BatteryServiceUUID.
	BatteryLevelCharUUID = "00002a19-0000-1000-8000-00805f9b34fb"
)

// ServiceUUIDs returns the discovery allowlist in its declared order.
func ServiceUUIDs() []string {
	return []string{
		NuimoServiceUUID,
		LegacyLEDMatrixServiceUUID,
		GenericAttributeServiceUUID,
		DeviceInformationServiceUUID,
		BatteryServiceUUID,
	}
}

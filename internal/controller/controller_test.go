package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/device"
	"github.com/srg/nuimo-probe/internal/gatt"
	"github.com/srg/nuimo-probe/internal/testutils"
	"github.com/srg/nuimo-probe/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type ControllerTestSuite struct {
	suite.Suite

	helper     *testutils.TestHelper
	gateway    *mocks.Gateway
	registry   *device.Registry
	controller *Controller
}

func (suite *ControllerTestSuite) SetupTest() {
	suite.helper = testutils.NewTestHelper(suite.T())
	suite.gateway = &mocks.Gateway{}
	suite.registry = device.NewRegistry(suite.gateway, nil, suite.helper.Logger)
	suite.controller = New(suite.gateway, suite.registry, gatt.NewLocator(nil), suite.helper.Logger, nil)
	suite.controller.now = func() time.Time { return fixedTime }
}

func (suite *ControllerTestSuite) batterySnapshot() *bluez.ManagedObjects {
	return testutils.NewSnapshotBuilder().
		WithDevice(testutils.TestDevicePath, testutils.TestDeviceAddress).
		WithService(testutils.TestServicePath, bluez.BatteryServiceUUID).
		WithCharacteristic(testutils.TestCharacteristicPath, bluez.BatteryLevelCharUUID).
		Build()
}

func (suite *ControllerTestSuite) TestInterfacesAdded_Device() {
	suite.gateway.On("GetManagedObjects", mock.Anything).
		Return(testutils.NewSnapshotBuilder().WithDevice(testutils.TestDevicePath, testutils.TestDeviceAddress).Build(), nil).Once()
	suite.gateway.On("Connect", mock.Anything, testutils.TestDevicePath).Return(nil).Once()

	suite.controller.OnInterfacesAdded(context.Background(), bluez.InterfacesAdded{Path: testutils.TestDevicePath})

	suite.Equal([]dbus.ObjectPath{testutils.TestDevicePath}, suite.registry.Known())
	suite.gateway.AssertNumberOfCalls(suite.T(), "Connect", 1)
	suite.gateway.AssertNotCalled(suite.T(), "ReadValue", mock.Anything, mock.Anything, mock.Anything)
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *ControllerTestSuite) TestInterfacesAdded_BatteryCharacteristic() {
	suite.gateway.On("GetManagedObjects", mock.Anything).Return(suite.batterySnapshot(), nil).Once()
	suite.gateway.On("ReadValue", mock.Anything, testutils.TestCharacteristicPath, uint16(0)).
		Return([]byte{87}, nil).Once()

	suite.controller.OnInterfacesAdded(context.Background(), bluez.InterfacesAdded{Path: testutils.TestCharacteristicPath})

	suite.gateway.AssertExpectations(suite.T())
	// a characteristic is never registered as a device
	suite.gateway.AssertNotCalled(suite.T(), "Connect", mock.Anything, mock.Anything)
	suite.Empty(suite.registry.Known())

	select {
	case r := <-suite.controller.Events():
		suite.Equal(BatteryReading{
			Device:         testutils.TestDevicePath,
			Address:        testutils.TestDeviceAddress,
			Characteristic: testutils.TestCharacteristicPath,
			Level:          87,
			Raw:            []byte{87},
			At:             fixedTime,
		}, r)
	default:
		suite.Fail("no battery reading published")
	}

	entry := suite.helper.EntryWithMessage("Battery value")
	suite.Require().NotNil(entry)
	suite.Equal(uint8(87), entry.Data["level"])
}

func (suite *ControllerTestSuite) TestInterfacesAdded_ReadFailureIsSwallowed() {
	readErr := bluez.NormalizeError("org.bluez.GattCharacteristic1.ReadValue", testutils.TestCharacteristicPath,
		dbus.Error{Name: "org.bluez.Error.NotPermitted"})
	suite.gateway.On("GetManagedObjects", mock.Anything).Return(suite.batterySnapshot(), nil).Once()
	suite.gateway.On("ReadValue", mock.Anything, mock.Anything, mock.Anything).Return(nil, readErr).Once()

	suite.NotPanics(func() {
		suite.controller.OnInterfacesAdded(context.Background(), bluez.InterfacesAdded{Path: testutils.TestCharacteristicPath})
	})

	entry := suite.helper.EntryWithMessage("Battery read failed")
	suite.Require().NotNil(entry)
	suite.Equal(bluez.KindPermissionDenied, entry.Data["kind"])
	suite.Empty(suite.controller.Events())
}

func (suite *ControllerTestSuite) TestInterfacesAdded_SnapshotFailureStillRegisters() {
	suite.gateway.On("GetManagedObjects", mock.Anything).Return(nil, errors.New("bus gone")).Once()
	suite.gateway.On("Connect", mock.Anything, testutils.TestDevicePath).Return(nil).Once()

	suite.controller.OnInterfacesAdded(context.Background(), bluez.InterfacesAdded{Path: testutils.TestDevicePath})

	suite.True(suite.registry.IsKnown(testutils.TestDevicePath))
	suite.Contains(suite.helper.Messages(logrus.ErrorLevel), "Failed to fetch managed objects")
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *ControllerTestSuite) TestInterfacesAdded_FreshSnapshotEveryTime() {
	suite.gateway.On("GetManagedObjects", mock.Anything).Return(testutils.NewSnapshotBuilder().Build(), nil).Twice()

	suite.controller.OnInterfacesAdded(context.Background(), bluez.InterfacesAdded{Path: testutils.TestServicePath})
	suite.controller.OnInterfacesAdded(context.Background(), bluez.InterfacesAdded{Path: testutils.TestServicePath})

	suite.gateway.AssertNumberOfCalls(suite.T(), "GetManagedObjects", 2)
}

func (suite *ControllerTestSuite) TestPropertiesChanged_ConnectedReconnects() {
	suite.gateway.On("GetManagedObjects", mock.Anything).Return(testutils.NewSnapshotBuilder().Build(), nil).Once()
	suite.gateway.On("Connect", mock.Anything, testutils.TestDevicePath).Return(nil).Twice()

	suite.controller.OnInterfacesAdded(context.Background(), bluez.InterfacesAdded{Path: testutils.TestDevicePath})
	suite.controller.OnPropertiesChanged(context.Background(), bluez.PropertiesChanged{
		Path:      testutils.TestDevicePath,
		Interface: bluez.DeviceInterface,
		Changed:   map[string]dbus.Variant{bluez.PropConnected: dbus.MakeVariant(true)},
	})

	suite.True(suite.registry.IsConnected(testutils.TestDevicePath))
	suite.gateway.AssertNumberOfCalls(suite.T(), "Connect", 2)
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *ControllerTestSuite) TestInterfacesRemoved_LogsOnly() {
	suite.gateway.On("Connect", mock.Anything, testutils.TestDevicePath).Return(nil).Once()
	suite.registry.RegisterAndConnect(context.Background(), testutils.TestDevicePath)

	suite.controller.OnInterfacesRemoved(context.Background(), bluez.InterfacesRemoved{
		Path:       testutils.TestDevicePath,
		Interfaces: []string{bluez.DeviceInterface},
	})

	suite.True(suite.registry.IsKnown(testutils.TestDevicePath))
	suite.Contains(suite.helper.Messages(logrus.InfoLevel), "Interfaces removed")
}

func (suite *ControllerTestSuite) TestReadBattery_Offset() {
	c := New(suite.gateway, suite.registry, gatt.NewLocator(nil), suite.helper.Logger, &Options{ReadOffset: 8})
	suite.gateway.On("ReadValue", mock.Anything, testutils.TestCharacteristicPath, uint16(8)).Return([]byte{101}, nil).Once()

	err := c.ReadBattery(context.Background(), testutils.TestCharacteristicPath)

	suite.Error(err)
	suite.Contains(suite.helper.Messages(logrus.WarnLevel), "Unexpected battery value")
	r := <-c.Events()
	suite.Equal(uint8(101), r.Level)
}

func (suite *ControllerTestSuite) TestReadBattery_EmptyValueNotPublished() {
	suite.gateway.On("ReadValue", mock.Anything, testutils.TestCharacteristicPath, uint16(0)).Return([]byte{}, nil).Once()

	err := suite.controller.ReadBattery(context.Background(), testutils.TestCharacteristicPath)

	suite.ErrorIs(err, gatt.ErrEmptyValue)
	suite.Empty(suite.controller.Events())
}

func (suite *ControllerTestSuite) TestDeviceRequests() {
	failure := bluez.NormalizeError("org.bluez.Device1.Pair", testutils.TestDevicePath,
		dbus.Error{Name: "org.bluez.Error.AuthenticationFailed"})
	suite.gateway.On("Connect", mock.Anything, testutils.TestDevicePath).Return(nil).Once()
	suite.gateway.On("Disconnect", mock.Anything, testutils.TestDevicePath).Return(nil).Once()
	suite.gateway.On("Pair", mock.Anything, testutils.TestDevicePath).Return(failure).Once()

	suite.NoError(suite.controller.Connect(context.Background(), testutils.TestDevicePath))
	suite.False(suite.registry.IsKnown(testutils.TestDevicePath))
	suite.NoError(suite.controller.Disconnect(context.Background(), testutils.TestDevicePath))
	suite.ErrorIs(suite.controller.Pair(context.Background(), testutils.TestDevicePath), bluez.ErrPermissionDenied)
	suite.Equal([]string{"Device request failed"}, suite.helper.Messages(logrus.ErrorLevel))
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

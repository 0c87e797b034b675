package controller

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/testutils"
	"github.com/stretchr/testify/mock"
)

func (suite *ControllerTestSuite) TestSubscriptionTable() {
	subs := suite.controller.Subscriptions()
	suite.Require().Len(subs, 3)

	suite.Equal(bluez.KindInterfacesAdded, subs[0].Kind)
	suite.Equal(bluez.KindInterfacesRemoved, subs[1].Kind)
	suite.Equal(bluez.KindPropertiesChanged, subs[2].Kind)

	suite.Equal([]bluez.MatchRule{
		{Interface: bluez.ObjectManagerInterface, Member: bluez.SignalInterfacesAdded},
		{Interface: bluez.ObjectManagerInterface, Member: bluez.SignalInterfacesRemoved},
		{Interface: bluez.PropertiesInterface, Member: bluez.SignalPropertiesChanged, Arg0: bluez.DeviceInterface},
	}, suite.controller.MatchRules())

	// callers get a copy
	subs[0].Kind = bluez.KindPropertiesChanged
	suite.Equal(bluez.KindInterfacesAdded, suite.controller.Subscriptions()[0].Kind)
}

func (suite *ControllerTestSuite) TestDispatch() {
	suite.gateway.On("Connect", mock.Anything, testutils.TestDevicePath).Return(nil).Once()

	suite.True(suite.controller.Dispatch(context.Background(), bluez.PropertiesChanged{
		Path:      testutils.TestDevicePath,
		Interface: bluez.DeviceInterface,
		Changed:   map[string]dbus.Variant{bluez.PropConnected: dbus.MakeVariant(true)},
	}))
	suite.True(suite.registry.IsConnected(testutils.TestDevicePath))
	suite.False(suite.controller.Dispatch(context.Background(), nil))
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *ControllerTestSuite) TestDispatch_IgnoresOtherInterfaces() {
	suite.controller.Dispatch(context.Background(), bluez.PropertiesChanged{
		Path:      testutils.TestCharacteristicPath,
		Interface: bluez.GattCharacteristicIface,
		Changed:   map[string]dbus.Variant{"Value": dbus.MakeVariant([]byte{1})},
	})

	suite.gateway.AssertNotCalled(suite.T(), "Connect", mock.Anything, mock.Anything)
	suite.Empty(suite.registry.Connected())
}

func (suite *ControllerTestSuite) TestRun_ProcessesUntilClosed() {
	suite.gateway.On("GetManagedObjects", mock.Anything).Return(testutils.NewSnapshotBuilder().Build(), nil)
	suite.gateway.On("Connect", mock.Anything, testutils.TestDevicePath).Return(nil)

	notifications := make(chan bluez.Notification, 3)
	notifications <- bluez.InterfacesAdded{Path: testutils.TestDevicePath}
	notifications <- bluez.PropertiesChanged{
		Path:      testutils.TestDevicePath,
		Interface: bluez.DeviceInterface,
		Changed:   map[string]dbus.Variant{bluez.PropConnected: dbus.MakeVariant(true)},
	}
	notifications <- bluez.InterfacesRemoved{Path: testutils.TestDevicePath, Interfaces: []string{bluez.DeviceInterface}}
	close(notifications)

	err := suite.controller.Run(context.Background(), notifications)

	suite.NoError(err)
	suite.True(suite.registry.IsKnown(testutils.TestDevicePath))
	suite.True(suite.registry.IsConnected(testutils.TestDevicePath))
	suite.gateway.AssertNumberOfCalls(suite.T(), "Connect", 2)
}

func (suite *ControllerTestSuite) TestRun_StopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	notifications := make(chan bluez.Notification)

	done := make(chan error, 1)
	go func() { done <- suite.controller.Run(ctx, notifications) }()
	cancel()

	select {
	case err := <-done:
		suite.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		suite.Fail("Run did not return after cancel")
	}
}

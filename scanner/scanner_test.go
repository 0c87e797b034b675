package scanner_test

import (
	"context"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/testutils"
	"github.com/srg/nuimo-probe/internal/testutils/mocks"
	"github.com/srg/nuimo-probe/scanner"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type ScannerTestSuite struct {
	suite.Suite

	helper  *testutils.TestHelper
	gateway *mocks.Gateway
	scanner *scanner.Scanner
}

func (suite *ScannerTestSuite) SetupTest() {
	suite.helper = testutils.NewTestHelper(suite.T())
	suite.gateway = &mocks.Gateway{}
	suite.scanner = scanner.NewScanner(suite.gateway, nil, suite.helper.Logger)
}

func (suite *ScannerTestSuite) TestDefaultScanOptions() {
	opts := scanner.DefaultScanOptions()

	suite.Equal("le", opts.Transport)
	suite.Equal([]string{
		"f29b1525-cb19-40f3-be5c-7241ecb82fd2",
		"f29b1523-cb19-40f3-be5c-7241ecb82fd1",
		"00001801-0000-1000-8000-00805f9b34fb",
		"0000180a-0000-1000-8000-00805f9b34fb",
		"0000180f-0000-1000-8000-00805f9b34fb",
	}, opts.ServiceUUIDs)
}

func (suite *ScannerTestSuite) TestFilterCopiesUUIDs() {
	opts := scanner.DefaultScanOptions()
	filter := opts.Filter()
	filter.UUIDs[0] = "changed"

	suite.NotEqual("changed", opts.ServiceUUIDs[0])
}

func (suite *ScannerTestSuite) TestStartFilteredDiscovery_FilterBeforeStart() {
	var order []string
	suite.gateway.On("SetDiscoveryFilter", mock.Anything, bluez.DiscoveryFilter{
		Transport: "le",
		UUIDs:     bluez.ServiceUUIDs(),
	}).Run(func(mock.Arguments) { order = append(order, "filter") }).Return(nil).Once()
	suite.gateway.On("StartDiscovery", mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "start") }).Return(nil).Once()

	err := suite.scanner.StartFilteredDiscovery(context.Background())

	suite.NoError(err)
	suite.Equal([]string{"filter", "start"}, order)
	suite.gateway.AssertExpectations(suite.T())

	info := suite.helper.Messages(logrus.InfoLevel)
	suite.Contains(info, "Setting discovery filter")
	suite.Contains(info, "Started discovery")
	suite.Empty(suite.helper.Messages(logrus.ErrorLevel))
}

func (suite *ScannerTestSuite) TestStartFilteredDiscovery_FilterFailureStillStarts() {
	filterErr := bluez.NormalizeError("SetDiscoveryFilter", bluez.DefaultAdapterPath,
		dbus.Error{Name: "org.bluez.Error.NotReady"})
	suite.gateway.On("SetDiscoveryFilter", mock.Anything, mock.Anything).Return(filterErr).Once()
	suite.gateway.On("StartDiscovery", mock.Anything).Return(nil).Once()

	err := suite.scanner.StartFilteredDiscovery(context.Background())

	suite.ErrorIs(err, bluez.ErrTransport)
	suite.gateway.AssertExpectations(suite.T())
	suite.Equal([]string{"Failed to set discovery filter"}, suite.helper.Messages(logrus.ErrorLevel))
}

func (suite *ScannerTestSuite) TestStartFilteredDiscovery_StartFailure() {
	startErr := bluez.NormalizeError("StartDiscovery", bluez.DefaultAdapterPath,
		dbus.Error{Name: "org.bluez.Error.InProgress"})
	suite.gateway.On("SetDiscoveryFilter", mock.Anything, mock.Anything).Return(nil).Once()
	suite.gateway.On("StartDiscovery", mock.Anything).Return(startErr).Once()

	err := suite.scanner.StartFilteredDiscovery(context.Background())

	suite.ErrorIs(err, bluez.ErrInProgress)
	suite.Equal([]string{"Failed to start discovery"}, suite.helper.Messages(logrus.ErrorLevel))
}

func (suite *ScannerTestSuite) TestCustomOptions() {
	opts := &scanner.ScanOptions{Transport: "auto", ServiceUUIDs: []string{"180f"}}
	s := scanner.NewScanner(suite.gateway, opts, suite.helper.Logger)
	suite.gateway.On("SetDiscoveryFilter", mock.Anything, bluez.DiscoveryFilter{
		Transport: "auto",
		UUIDs:     []string{"180f"},
	}).Return(nil).Once()
	suite.gateway.On("StartDiscovery", mock.Anything).Return(nil).Once()

	suite.NoError(s.StartFilteredDiscovery(context.Background()))
	suite.Same(opts, s.Options())
	suite.gateway.AssertExpectations(suite.T())
}

func (suite *ScannerTestSuite) TestStopDiscovery() {
	suite.gateway.On("StopDiscovery", mock.Anything).Return(nil).Once()
	suite.NoError(suite.scanner.StopDiscovery(context.Background()))
	suite.Contains(suite.helper.Messages(logrus.InfoLevel), "Stopped discovery")

	stopErr := bluez.NormalizeError("StopDiscovery", bluez.DefaultAdapterPath,
		dbus.Error{Name: "org.bluez.Error.NotAuthorized"})
	suite.gateway.On("StopDiscovery", mock.Anything).Return(stopErr).Once()
	suite.ErrorIs(suite.scanner.StopDiscovery(context.Background()), bluez.ErrPermissionDenied)
	suite.Contains(suite.helper.Messages(logrus.WarnLevel), "Failed to stop discovery")
}

func TestScannerTestSuite(t *testing.T) {
	suite.Run(t, new(ScannerTestSuite))
}

package main

import (
	"bytes"
	"context"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/bluez"
	"github.com/srg/nuimo-probe/internal/devicefactory"
	"github.com/srg/nuimo-probe/internal/testutils/mocks"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs commands against a mocked BlueZ gateway.
// All cmd/nuimo-probe test suites embed it.
type CommandTestSuite struct {
	suite.Suite

	Gateway         *mocks.BusGateway
	originalFactory func(context.Context, *bluez.ClientOptions, *logrus.Logger) (devicefactory.Gateway, error)
	originalNoColor bool
	dialed          []*bluez.ClientOptions
}

func (s *CommandTestSuite) SetupSuite() {
	s.originalFactory = devicefactory.GatewayFactory
	s.originalNoColor = color.NoColor
	color.NoColor = true
}

func (s *CommandTestSuite) TearDownSuite() {
	devicefactory.GatewayFactory = s.originalFactory
	color.NoColor = s.originalNoColor
}

func (s *CommandTestSuite) SetupTest() {
	s.Gateway = &mocks.BusGateway{}
	s.Gateway.On("Adapter").Return(bluez.DefaultAdapterPath).Maybe()
	s.Gateway.On("Close").Return(nil).Maybe()
	s.dialed = nil

	devicefactory.GatewayFactory = func(_ context.Context, opts *bluez.ClientOptions, _ *logrus.Logger) (devicefactory.Gateway, error) {
		s.dialed = append(s.dialed, opts)
		return s.Gateway, nil
	}
}

// ExecuteCommand runs a fresh command tree with args and returns stdout, stderr and the error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, string, error) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd := newRootCmd()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

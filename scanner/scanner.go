package scanner

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/bledb"
	"github.com/srg/nuimo-probe/internal/bluez"
)

// DiscoveryAdapter is the part of the gateway needed to run a discovery session.
type DiscoveryAdapter interface {
	SetDiscoveryFilter(ctx context.Context, filter bluez.DiscoveryFilter) error
	StartDiscovery(ctx context.Context) error
	StopDiscovery(ctx context.Context) error
}

// ScanOptions configures the discovery filter
type ScanOptions struct {
	Transport    string
	ServiceUUIDs []string
}

// DefaultScanOptions returns LE-only discovery restricted to the Nuimo service allowlist
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Transport:    bluez.TransportLE,
		ServiceUUIDs: bluez.ServiceUUIDs(),
	}
}

// Filter converts the options into a BlueZ discovery filter.
func (o *ScanOptions) Filter() bluez.DiscoveryFilter {
	return bluez.DiscoveryFilter{
		Transport: o.Transport,
		UUIDs:     append([]string(nil), o.ServiceUUIDs...),
	}
}

// Scanner starts and stops filtered discovery sessions on one adapter
type Scanner struct {
	adapter DiscoveryAdapter
	opts    *ScanOptions
	logger  *logrus.Logger
}

// NewScanner creates a scanner. Nil opts use DefaultScanOptions.
func NewScanner(adapter DiscoveryAdapter, opts *ScanOptions, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	if opts == nil {
		opts = DefaultScanOptions()
	}
	return &Scanner{
		adapter: adapter,
		opts:    opts,
		logger:  logger,
	}
}

// Options returns the options the scanner was created with.
func (s *Scanner) Options() *ScanOptions {
	return s.opts
}

// StartFilteredDiscovery sets the discovery filter and starts discovery.
// StartDiscovery is attempted even if the filter could not be set. Failures are
// logged; the joined errors are returned only so callers can inspect their kind.
func (s *Scanner) StartFilteredDiscovery(ctx context.Context) error {
	filter := s.opts.Filter()

	services := make([]string, 0, len(filter.UUIDs))
	for _, u := range filter.UUIDs {
		services = append(services, bledb.Describe(u))
	}
	s.logger.WithFields(logrus.Fields{
		"transport": filter.Transport,
		"services":  services,
	}).Info("Setting discovery filter")

	filterErr := s.adapter.SetDiscoveryFilter(ctx, filter)
	if filterErr != nil {
		s.logger.WithError(filterErr).WithField("kind", bluez.KindOf(filterErr)).Error("Failed to set discovery filter")
	}

	s.logger.Info("Started discovery")
	startErr := s.adapter.StartDiscovery(ctx)
	if startErr != nil {
		s.logger.WithError(startErr).WithField("kind", bluez.KindOf(startErr)).Error("Failed to start discovery")
	}

	return errors.Join(filterErr, startErr)
}

// StopDiscovery stops the discovery session. Failures are logged and returned.
func (s *Scanner) StopDiscovery(ctx context.Context) error {
	if err := s.adapter.StopDiscovery(ctx); err != nil {
		s.logger.WithError(err).WithField("kind", bluez.KindOf(err)).Warn("Failed to stop discovery")
		return err
	}
	s.logger.Info("Stopped discovery")
	return nil
}

package controller

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/nuimo-probe/internal/bluez"
)

// Subscription binds one notification kind to its match rule and handler.
type Subscription struct {
	Kind    bluez.NotificationKind
	Rule    bluez.MatchRule
	Handler func(ctx context.Context, n bluez.Notification)
}

func (c *Controller) subscriptionTable() []Subscription {
	return []Subscription{
		{
			Kind: bluez.KindInterfacesAdded,
			Rule: bluez.MatchRule{
				Interface: bluez.ObjectManagerInterface,
				Member:    bluez.SignalInterfacesAdded,
			},
			Handler: func(ctx context.Context, n bluez.Notification) {
				if ia, ok := n.(bluez.InterfacesAdded); ok {
					c.OnInterfacesAdded(ctx, ia)
				}
			},
		},
		{
			Kind: bluez.KindInterfacesRemoved,
			Rule: bluez.MatchRule{
				Interface: bluez.ObjectManagerInterface,
				Member:    bluez.SignalInterfacesRemoved,
			},
			Handler: func(ctx context.Context, n bluez.Notification) {
				if ir, ok := n.(bluez.InterfacesRemoved); ok {
					c.OnInterfacesRemoved(ctx, ir)
				}
			},
		},
		{
			Kind: bluez.KindPropertiesChanged,
			Rule: bluez.MatchRule{
				Interface: bluez.PropertiesInterface,
				Member:    bluez.SignalPropertiesChanged,
				Arg0:      bluez.DeviceInterface,
			},
			Handler: func(ctx context.Context, n bluez.Notification) {
				pc, ok := n.(bluez.PropertiesChanged)
				if !ok || pc.Interface != bluez.DeviceInterface {
					return
				}
				c.OnPropertiesChanged(ctx, pc)
			},
		},
	}
}

// Subscriptions returns the active subscription table.
func (c *Controller) Subscriptions() []Subscription {
	return append([]Subscription(nil), c.subs...)
}

// MatchRules returns the D-Bus match rules for every subscription.
func (c *Controller) MatchRules() []bluez.MatchRule {
	rules := make([]bluez.MatchRule, 0, len(c.subs))
	for _, s := range c.subs {
		rules = append(rules, s.Rule)
	}
	return rules
}

// Dispatch routes n to the handler registered for its kind.
// It reports whether a handler ran.
func (c *Controller) Dispatch(ctx context.Context, n bluez.Notification) bool {
	if n == nil {
		return false
	}
	for _, s := range c.subs {
		if s.Kind == n.Kind() {
			s.Handler(ctx, n)
			return true
		}
	}
	c.logger.WithField("kind", n.Kind()).Debug("No subscription for notification")
	return false
}

// Run delivers notifications to their handlers one at a time until ctx is
// done or notifications is closed. Each handler runs to completion before the
// next notification is taken.
func (c *Controller) Run(ctx context.Context, notifications <-chan bluez.Notification) error {
	c.logger.WithField("subscriptions", len(c.subs)).Info("Dispatch loop started")
	defer c.logger.Info("Dispatch loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			c.logger.WithFields(logrus.Fields{
				"kind": n.Kind(),
				"path": n.ObjectPath(),
			}).Debug("Dispatching notification")
			c.Dispatch(ctx, n)
		}
	}
}

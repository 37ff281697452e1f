package signer

import (
	"fmt"

	"github.com/chainsafe/canton-wallet-gateway/pkg/wallet"
)

// Registry maps provider ids to driver instances. Registration order is
// preserved: when reconciliation probes drivers for a namespace match, the
// first-registered driver wins, keeping resolution deterministic even if two
// backends spuriously report the same key.
type Registry struct {
	order   []wallet.ProviderID
	drivers map[wallet.ProviderID]Driver
}

// NewRegistry creates an empty driver registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[wallet.ProviderID]Driver)}
}

// Register adds a driver. Registering the same provider id twice is a
// configuration bug and returns an error.
func (r *Registry) Register(d Driver) error {
	id := d.ProviderID()
	if _, ok := r.drivers[id]; ok {
		return fmt.Errorf("signing driver %q already registered", id)
	}
	r.order = append(r.order, id)
	r.drivers[id] = d
	return nil
}

// Get returns the driver for a provider id.
func (r *Registry) Get(id wallet.ProviderID) (Driver, bool) {
	d, ok := r.drivers[id]
	return d, ok
}

// Drivers returns all drivers in registration order.
func (r *Registry) Drivers() []Driver {
	out := make([]Driver, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.drivers[id])
	}
	return out
}

// NonParticipant returns all drivers except the participant one, in
// registration order. These are the drivers probed during namespace
// resolution.
func (r *Registry) NonParticipant() []Driver {
	out := make([]Driver, 0, len(r.order))
	for _, id := range r.order {
		if id == wallet.ProviderParticipant {
			continue
		}
		out = append(out, r.drivers[id])
	}
	return out
}

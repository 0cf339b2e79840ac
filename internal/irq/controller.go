package irq

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tinyrange/irqgate/internal/hwreg"
)

// NoMatchPolicy selects what a name-based enable/disable does when a callback
// identity resolves to no interrupt. A miss usually means a mistyped identity
// or a table/caller mismatch, so the default is to warn.
type NoMatchPolicy uint8

const (
	NoMatchWarn NoMatchPolicy = iota
	NoMatchSilent
	NoMatchPanic
)

// Option configures a Controller.
type Option func(*Controller)

// WithNoMatchPolicy sets the policy for unresolved name-based requests.
func WithNoMatchPolicy(p NoMatchPolicy) Option {
	return func(c *Controller) { c.noMatch = p }
}

// WithLogger routes controller logging to log. The default is slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// Controller owns the per-register allowed and requested masks and the
// resource states. All mutation happens under one controller-wide mutex: a
// resource transition touches every affected register, and interleaving a
// half-applied recalculation with an enable request would write a stale
// merge to hardware.
type Controller struct {
	mu sync.Mutex

	backend hwreg.Backend
	log     *slog.Logger
	noMatch NoMatchPolicy

	index *index

	// resources holds the current availability of every resource in the
	// table; true means ON. Resources default ON.
	resources map[Resource]bool

	// allowed is the per-register mask of enable bits permitted under the
	// current resource states. Only affected registers have entries; any
	// other register is implicitly all-ones and never recomputed.
	allowed map[string]uint64

	// requested is the per-register mask of enable bits firmware asked for,
	// independent of resource policy. It persists across resource
	// transitions so a masked interrupt comes back on its own.
	requested map[string]uint64
}

// UpdateResource records a resource transition, recomputes the allowed masks
// for every affected register, and reprograms them.
func (c *Controller) UpdateResource(res Resource, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resources[res] = status == StatusOn
	c.recalculateLocked()
	c.reprogramLocked(c.index.affectedRegs)
}

// TurnOnResource marks res available.
func (c *Controller) TurnOnResource(res Resource) {
	c.UpdateResource(res, StatusOn)
}

// TurnOffResource marks res unavailable.
func (c *Controller) TurnOffResource(res Resource) {
	c.UpdateResource(res, StatusOff)
}

// EnableByField sets (enable=true) or clears (enable=false) the requested
// bits for each field, then reprograms the registers touched.
func (c *Controller) EnableByField(enable bool, fields ...*hwreg.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var touched []*hwreg.Register
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == nil {
			continue
		}
		reg := f.Register()
		if enable {
			c.requested[reg.ID()] |= f.Mask()
		} else {
			c.requested[reg.ID()] &^= f.Mask()
		}
		if _, ok := seen[reg.ID()]; !ok {
			seen[reg.ID()] = struct{}{}
			touched = append(touched, reg)
		}
	}
	c.reprogramLocked(touched)
}

// EnableByName resolves each callback identity to its enable fields and
// delegates to EnableByField. The lookup table is immutable, so only the
// field update itself needs the critical section.
func (c *Controller) EnableByName(enable bool, callbacks ...Callback) {
	var fields []*hwreg.Field
	for _, cb := range callbacks {
		matched := c.index.callbacks[cb]
		if len(matched) == 0 {
			c.handleNoMatch(cb, enable)
			continue
		}
		fields = append(fields, matched...)
	}
	if len(fields) == 0 {
		return
	}
	c.EnableByField(enable, fields...)
}

// Enable enables every interrupt identified by the given callbacks.
func (c *Controller) Enable(callbacks ...Callback) {
	c.EnableByName(true, callbacks...)
}

// Disable disables every interrupt identified by the given callbacks.
func (c *Controller) Disable(callbacks ...Callback) {
	c.EnableByName(false, callbacks...)
}

func (c *Controller) handleNoMatch(cb Callback, enable bool) {
	switch c.noMatch {
	case NoMatchSilent:
	case NoMatchPanic:
		panic(fmt.Sprintf("irq: no interrupt with callback %q", cb))
	default:
		c.log.Warn("irq: enable by name matched no interrupt", "callback", string(cb), "enable", enable)
	}
}

// recalculateLocked recomputes the allowed mask of every affected register
// from scratch: reset to all-ones, then AND in the per-resource masks of
// every resource currently OFF. Resource transitions are rare, so the full
// sweep is preferred over incremental updates.
func (c *Controller) recalculateLocked() {
	for _, reg := range c.index.affectedRegs {
		c.allowed[reg.ID()] = reg.AllOnes()
	}
	for _, res := range c.index.allResources {
		if c.resources[res] {
			continue
		}
		masks := c.index.irqsAllowed[res]
		for _, reg := range c.index.affectedRegs {
			c.allowed[reg.ID()] &= masks[reg.ID()]
		}
	}
}

// reprogramLocked writes allowed & requested to each register. Writes set the
// full register value, so no hardware read-modify-write is needed. The
// control surface is fire and forget; a failed write is logged and the
// software state stays authoritative.
func (c *Controller) reprogramLocked(regs []*hwreg.Register) {
	for _, reg := range regs {
		final := c.allowedLocked(reg) & c.requested[reg.ID()]
		if err := c.backend.Write(reg, final); err != nil {
			c.log.Error("irq: register write failed", "register", reg.ID(), "err", err)
		}
	}
}

func (c *Controller) allowedLocked(reg *hwreg.Register) uint64 {
	if v, ok := c.allowed[reg.ID()]; ok {
		return v
	}
	// Not resource-affected: always allowed.
	return reg.AllOnes()
}

// ResourceStatus returns the current availability of res. Resources not named
// by any interrupt report ON.
func (c *Controller) ResourceStatus(res Resource) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on, ok := c.resources[res]; ok && !on {
		return StatusOff
	}
	return StatusOn
}

// AllowedMask returns the current allowed mask for reg.
func (c *Controller) AllowedMask(reg *hwreg.Register) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowedLocked(reg)
}

// RequestedMask returns the current requested mask for reg.
func (c *Controller) RequestedMask(reg *hwreg.Register) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested[reg.ID()]
}

// Resources returns every resource referenced by the interrupt table.
func (c *Controller) Resources() []Resource {
	out := make([]Resource, len(c.index.allResources))
	copy(out, c.index.allResources)
	return out
}

// AffectedRegisters returns the registers subject to recalculation.
func (c *Controller) AffectedRegisters() []*hwreg.Register {
	out := make([]*hwreg.Register, len(c.index.affectedRegs))
	copy(out, c.index.affectedRegs)
	return out
}

// IrqsAllowed returns the derived mask of enable bits in reg that stay
// allowed while res is off.
func (c *Controller) IrqsAllowed(res Resource, reg *hwreg.Register) uint64 {
	return c.index.irqsAllowed[res][reg.ID()]
}

func (c *Controller) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	off := 0
	for _, on := range c.resources {
		if !on {
			off++
		}
	}
	return fmt.Sprintf("Controller(resources=%d, off=%d, affected=%d)",
		len(c.resources), off, len(c.index.affectedRegs))
}

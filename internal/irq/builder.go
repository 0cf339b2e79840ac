package irq

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/irqgate/internal/hwreg"
)

// Builder collects the interrupt table before creating a Controller.
// Configuration errors are rejected here, before the system is operational.
type Builder struct {
	irqs  []Interrupt
	names map[string]struct{}

	// claimed tracks, per register id, the enable bits already owned by an
	// interrupt so a field cannot be claimed twice.
	claimed map[string]uint64
}

// NewBuilder returns an empty Builder instance.
func NewBuilder() *Builder {
	return &Builder{
		names:   make(map[string]struct{}),
		claimed: make(map[string]uint64),
	}
}

// Add appends one interrupt to the table.
func (b *Builder) Add(irq Interrupt) error {
	if b == nil {
		return fmt.Errorf("irq: builder is nil")
	}
	if irq.Name == "" {
		return fmt.Errorf("irq: interrupt name is empty")
	}
	if _, exists := b.names[irq.Name]; exists {
		return fmt.Errorf("irq: interrupt %q already declared", irq.Name)
	}

	seen := make(map[Resource]struct{}, len(irq.Resources))
	for _, res := range irq.Resources {
		if res == "" {
			return fmt.Errorf("irq: interrupt %q lists an empty resource", irq.Name)
		}
		if _, dup := seen[res]; dup {
			return fmt.Errorf("irq: interrupt %q lists resource %q more than once", irq.Name, res)
		}
		seen[res] = struct{}{}
	}

	if f := irq.Enable; f != nil {
		regID := f.Register().ID()
		if b.claimed[regID]&f.Mask() != 0 {
			return fmt.Errorf("irq: interrupt %q claims bits 0x%x of register %q already owned by another interrupt",
				irq.Name, b.claimed[regID]&f.Mask(), regID)
		}
		b.claimed[regID] |= f.Mask()
	}

	b.names[irq.Name] = struct{}{}
	b.irqs = append(b.irqs, irq)
	return nil
}

// index holds everything derived from the interrupt table. It is computed
// once by Build and never mutated afterwards.
type index struct {
	// allResources is every resource referenced by any interrupt, first
	// occurrence order, deduplicated.
	allResources []Resource

	// affectedRegs are the registers containing at least one enable field
	// belonging to an interrupt with a non-empty resource set. Only these
	// registers are subject to recalculation.
	affectedRegs []*hwreg.Register

	// irqsAllowed[res][regID] has a bit set for every enable field in that
	// register whose interrupt does not depend on res.
	irqsAllowed map[Resource]map[string]uint64

	// callbacks maps a callback identity to the enable fields it resolves to.
	// Only interrupts with an enable field participate.
	callbacks map[Callback][]*hwreg.Field
}

func buildIndex(irqs []Interrupt) *index {
	ix := &index{
		irqsAllowed: make(map[Resource]map[string]uint64),
		callbacks:   make(map[Callback][]*hwreg.Field),
	}

	resSeen := make(map[Resource]struct{})
	regSeen := make(map[string]struct{})
	for _, irq := range irqs {
		for _, res := range irq.Resources {
			if _, ok := resSeen[res]; !ok {
				resSeen[res] = struct{}{}
				ix.allResources = append(ix.allResources, res)
			}
		}
		if irq.Enable != nil && len(irq.Resources) > 0 {
			reg := irq.Enable.Register()
			if _, ok := regSeen[reg.ID()]; !ok {
				regSeen[reg.ID()] = struct{}{}
				ix.affectedRegs = append(ix.affectedRegs, reg)
			}
		}
		if irq.Enable != nil && irq.Callback != "" {
			ix.callbacks[irq.Callback] = append(ix.callbacks[irq.Callback], irq.Enable)
		}
	}

	for _, res := range ix.allResources {
		masks := make(map[string]uint64, len(ix.affectedRegs))
		for _, irq := range irqs {
			if irq.Enable == nil || dependsOn(irq, res) {
				continue
			}
			regID := irq.Enable.Register().ID()
			masks[regID] |= irq.Enable.Mask()
		}
		ix.irqsAllowed[res] = masks
	}

	return ix
}

func dependsOn(irq Interrupt, res Resource) bool {
	for _, r := range irq.Resources {
		if r == res {
			return true
		}
	}
	return false
}

// Build derives the immutable index from the table and returns a Controller
// programming registers through backend. Every resource starts ON; every
// requested mask starts empty.
func (b *Builder) Build(backend hwreg.Backend, opts ...Option) (*Controller, error) {
	if b == nil {
		return nil, fmt.Errorf("irq: builder is nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("irq: backend is nil")
	}

	ix := buildIndex(b.irqs)

	c := &Controller{
		backend:   backend,
		log:       slog.Default(),
		index:     ix,
		resources: make(map[Resource]bool, len(ix.allResources)),
		allowed:   make(map[string]uint64, len(ix.affectedRegs)),
		requested: make(map[string]uint64),
	}
	for _, res := range ix.allResources {
		c.resources[res] = true
	}
	for _, reg := range ix.affectedRegs {
		c.allowed[reg.ID()] = reg.AllOnes()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

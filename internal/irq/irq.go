// Package irq implements a resource-gated interrupt-enable controller.
//
// Interrupts are declared once in a static table. Each interrupt may carry an
// enable field (a bit in a hardware register) and a set of resources it
// depends on (clocks, power rails). The controller keeps two masks per
// register: what current resource availability allows, and what firmware has
// requested. The value written to hardware is always the AND of the two, so
// turning a resource off masks every dependent interrupt and turning it back
// on restores whatever firmware had asked for, with no per-interrupt
// bookkeeping at transition time.
package irq

import (
	"github.com/tinyrange/irqgate/internal/hwreg"
)

// Resource identifies a shared hardware dependency with ON/OFF availability.
type Resource string

// Callback identifies an interrupt for name-based enable/disable.
type Callback string

// Status is the availability of a Resource.
type Status uint8

const (
	StatusOff Status = iota
	StatusOn
)

func (s Status) String() string {
	if s == StatusOn {
		return "on"
	}
	return "off"
}

// Interrupt is one entry of the static interrupt table.
//
// An interrupt without an enable field (Enable == nil) is excluded from all
// enable management; it can still be declared so the table remains the single
// source of truth.
type Interrupt struct {
	Name      string
	Enable    *hwreg.Field
	Resources []Resource
	Callback  Callback
}

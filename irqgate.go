// Package irqgate manages hardware interrupt-enable bits for firmware that
// shares resources (clocks, power rails) whose availability changes at
// runtime. Interrupts are declared once in a static table together with the
// resources they depend on; the controller derives, per register, which
// enable bits each resource gates, and keeps hardware equal to
// allowed & requested after every resource transition or enable request.
package irqgate

import (
	"github.com/tinyrange/irqgate/internal/hwreg"
	"github.com/tinyrange/irqgate/internal/irq"
	"github.com/tinyrange/irqgate/internal/tableconf"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from internal packages
// -----------------------------------------------------------------------------

// Register identifies one hardware enable register.
type Register = hwreg.Register

// Field is a group of bits inside one register, typically a single enable bit.
type Field = hwreg.Field

// Backend issues whole-register writes to hardware.
type Backend = hwreg.Backend

// MemBackend is an in-memory Backend for tests and tooling.
type MemBackend = hwreg.MemBackend

// Resource identifies a shared hardware dependency with ON/OFF availability.
type Resource = irq.Resource

// Callback identifies an interrupt for name-based enable/disable.
type Callback = irq.Callback

// Status is the availability of a Resource.
type Status = irq.Status

// Interrupt is one entry of the static interrupt table.
type Interrupt = irq.Interrupt

// Builder collects the interrupt table before creating a Controller.
type Builder = irq.Builder

// Controller owns the per-register masks and the resource states.
type Controller = irq.Controller

// Option configures a Controller.
type Option = irq.Option

// NoMatchPolicy selects the behavior of unresolved name-based requests.
type NoMatchPolicy = irq.NoMatchPolicy

// Table is a declarative interrupt table loaded from YAML.
type Table = tableconf.Table

// Resource availability states.
const (
	StatusOff = irq.StatusOff
	StatusOn  = irq.StatusOn
)

// Policies for name-based requests that resolve to no interrupt.
const (
	NoMatchWarn   = irq.NoMatchWarn
	NoMatchSilent = irq.NoMatchSilent
	NoMatchPanic  = irq.NoMatchPanic
)

// NewBuilder returns an empty interrupt table builder.
func NewBuilder() *Builder { return irq.NewBuilder() }

// NewRegister declares a register with the given stable id and bit width.
func NewRegister(id string, width uint8) (*Register, error) {
	return hwreg.NewRegister(id, width)
}

// MustRegister is NewRegister for statically declared tables.
func MustRegister(id string, width uint8) *Register {
	return hwreg.MustRegister(id, width)
}

// NewField declares a field as a raw mask within reg.
func NewField(reg *Register, mask uint64) (*Field, error) {
	return hwreg.NewField(reg, mask)
}

// Bit declares a single-bit field at the given bit position within reg.
func Bit(reg *Register, bit uint8) (*Field, error) {
	return hwreg.Bit(reg, bit)
}

// MustBit is Bit for statically declared tables.
func MustBit(reg *Register, bit uint8) *Field {
	return hwreg.MustBit(reg, bit)
}

// NewMemBackend returns an in-memory backend.
func NewMemBackend() *MemBackend { return hwreg.NewMemBackend() }

// WithNoMatchPolicy sets the policy for unresolved name-based requests.
var WithNoMatchPolicy = irq.WithNoMatchPolicy

// WithLogger routes controller logging to a specific slog.Logger.
var WithLogger = irq.WithLogger

// LoadTable parses and validates a declarative table from YAML.
func LoadTable(data []byte) (*Table, error) { return tableconf.Load(data) }

// LoadTableFile reads and parses a declarative table file.
func LoadTableFile(path string) (*Table, error) { return tableconf.LoadFile(path) }

// Package hwreg provides the register and field primitives the interrupt
// controller programs. A Register is a stable identity plus a bit width; a
// Field is a group of bits inside one register. Actual hardware access goes
// through a Backend, which only needs to support whole-register writes: the
// controller keeps the full enable state in software and never reads back.
package hwreg

import (
	"fmt"
	"sync"
)

// Register identifies one hardware enable register.
type Register struct {
	id    string
	width uint8
}

// NewRegister declares a register with the given stable id and bit width.
// Width must be 8, 16, 32 or 64.
func NewRegister(id string, width uint8) (*Register, error) {
	if id == "" {
		return nil, fmt.Errorf("hwreg: register id is empty")
	}
	switch width {
	case 8, 16, 32, 64:
	default:
		return nil, fmt.Errorf("hwreg: register %q has invalid width %d", id, width)
	}
	return &Register{id: id, width: width}, nil
}

// MustRegister is NewRegister for statically declared tables.
func MustRegister(id string, width uint8) *Register {
	reg, err := NewRegister(id, width)
	if err != nil {
		panic(err)
	}
	return reg
}

func (r *Register) ID() string   { return r.id }
func (r *Register) Width() uint8 { return r.width }

// AllOnes returns the width-limited all-ones value for this register.
func (r *Register) AllOnes() uint64 {
	if r.width == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << r.width) - 1
}

func (r *Register) String() string {
	return fmt.Sprintf("%s/%d", r.id, r.width)
}

// Field is a group of bits inside one register, typically a single enable bit.
type Field struct {
	reg  *Register
	mask uint64
}

// NewField declares a field as a raw mask within reg.
func NewField(reg *Register, mask uint64) (*Field, error) {
	if reg == nil {
		return nil, fmt.Errorf("hwreg: field register is nil")
	}
	if mask == 0 {
		return nil, fmt.Errorf("hwreg: field in register %q has empty mask", reg.id)
	}
	if mask&^reg.AllOnes() != 0 {
		return nil, fmt.Errorf("hwreg: field mask 0x%x exceeds width of register %q", mask, reg.id)
	}
	return &Field{reg: reg, mask: mask}, nil
}

// Bit declares a single-bit field at the given bit position within reg.
func Bit(reg *Register, bit uint8) (*Field, error) {
	if reg != nil && bit >= reg.width {
		return nil, fmt.Errorf("hwreg: bit %d out of range for register %q", bit, reg.id)
	}
	return NewField(reg, uint64(1)<<bit)
}

// MustBit is Bit for statically declared tables.
func MustBit(reg *Register, bit uint8) *Field {
	f, err := Bit(reg, bit)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Field) Register() *Register { return f.reg }
func (f *Field) Mask() uint64        { return f.mask }

func (f *Field) String() string {
	return fmt.Sprintf("%s[0x%x]", f.reg.id, f.mask)
}

// Backend issues whole-register writes. Writes set the complete register
// value atomically; no read-modify-write is required of the hardware.
type Backend interface {
	Write(reg *Register, value uint64) error
}

// MemBackend is an in-memory Backend used by tests and tooling as the
// observable "hardware".
type MemBackend struct {
	mu     sync.Mutex
	values map[string]uint64
	writes uint64
}

func NewMemBackend() *MemBackend {
	return &MemBackend{values: make(map[string]uint64)}
}

func (b *MemBackend) Write(reg *Register, value uint64) error {
	if reg == nil {
		return fmt.Errorf("hwreg: write to nil register")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[reg.id] = value
	b.writes++
	return nil
}

// Value returns the last value written to reg, zero if never written.
func (b *MemBackend) Value(reg *Register) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.values[reg.id]
}

// Writes returns the total number of writes issued.
func (b *MemBackend) Writes() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

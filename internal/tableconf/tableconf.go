// Package tableconf loads a declarative interrupt table from YAML and feeds
// it into an irq.Builder. The file format mirrors the static table: registers
// with widths, interrupts with an optional enable bit, resource dependencies
// and a callback identity. Malformed files are rejected here, before any
// controller exists.
package tableconf

import (
	"fmt"
	"os"

	"github.com/tinyrange/irqgate/internal/hwreg"
	"github.com/tinyrange/irqgate/internal/irq"
	"gopkg.in/yaml.v3"
)

const defaultRegisterWidth = 32

// Table describes an interrupt table on disk.
type Table struct {
	Version int `yaml:"version"`

	Registers  []Register  `yaml:"registers"`
	Interrupts []Interrupt `yaml:"interrupts"`
}

// Register declares one enable register.
type Register struct {
	ID    string `yaml:"id"`
	Width uint8  `yaml:"width,omitempty"`
}

// Interrupt declares one interrupt. Register plus exactly one of Bit or Mask
// gives it an enable field; leaving Register empty declares an interrupt
// outside enable management.
type Interrupt struct {
	Name      string   `yaml:"name"`
	Register  string   `yaml:"register,omitempty"`
	Bit       *uint8   `yaml:"bit,omitempty"`
	Mask      uint64   `yaml:"mask,omitempty"`
	Resources []string `yaml:"resources,omitempty"`
	Callback  string   `yaml:"callback,omitempty"`
}

func (t *Table) normalize() {
	if t.Version == 0 {
		t.Version = 1
	}
	for i := range t.Registers {
		if t.Registers[i].Width == 0 {
			t.Registers[i].Width = defaultRegisterWidth
		}
	}
}

func (t *Table) validate() error {
	if t.Version != 1 {
		return fmt.Errorf("unsupported version %d", t.Version)
	}
	regs := make(map[string]struct{}, len(t.Registers))
	for _, reg := range t.Registers {
		if reg.ID == "" {
			return fmt.Errorf("register with empty id")
		}
		if _, dup := regs[reg.ID]; dup {
			return fmt.Errorf("register %q declared twice", reg.ID)
		}
		regs[reg.ID] = struct{}{}
	}
	for _, in := range t.Interrupts {
		if in.Name == "" {
			return fmt.Errorf("interrupt with empty name")
		}
		if in.Register == "" {
			if in.Bit != nil || in.Mask != 0 {
				return fmt.Errorf("interrupt %q sets an enable bit without a register", in.Name)
			}
			continue
		}
		if _, ok := regs[in.Register]; !ok {
			return fmt.Errorf("interrupt %q names undeclared register %q", in.Name, in.Register)
		}
		if in.Bit != nil && in.Mask != 0 {
			return fmt.Errorf("interrupt %q sets both bit and mask", in.Name)
		}
		if in.Bit == nil && in.Mask == 0 {
			return fmt.Errorf("interrupt %q names register %q without bit or mask", in.Name, in.Register)
		}
	}
	return nil
}

// Load parses and validates a table from YAML.
func Load(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("tableconf: parse: %w", err)
	}
	t.normalize()
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("tableconf: %w", err)
	}
	return &t, nil
}

// LoadFile reads and parses a table file.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tableconf: read %s: %w", path, err)
	}
	return Load(data)
}

// Apply declares the table's registers and adds every interrupt to b. It
// returns the declared registers keyed by id so callers can address them.
func (t *Table) Apply(b *irq.Builder) (map[string]*hwreg.Register, error) {
	regs := make(map[string]*hwreg.Register, len(t.Registers))
	for _, rc := range t.Registers {
		reg, err := hwreg.NewRegister(rc.ID, rc.Width)
		if err != nil {
			return nil, fmt.Errorf("tableconf: %w", err)
		}
		regs[rc.ID] = reg
	}

	for _, in := range t.Interrupts {
		var field *hwreg.Field
		if in.Register != "" {
			reg := regs[in.Register]
			var err error
			if in.Bit != nil {
				field, err = hwreg.Bit(reg, *in.Bit)
			} else {
				field, err = hwreg.NewField(reg, in.Mask)
			}
			if err != nil {
				return nil, fmt.Errorf("tableconf: interrupt %q: %w", in.Name, err)
			}
		}

		resources := make([]irq.Resource, 0, len(in.Resources))
		for _, res := range in.Resources {
			resources = append(resources, irq.Resource(res))
		}

		err := b.Add(irq.Interrupt{
			Name:      in.Name,
			Enable:    field,
			Resources: resources,
			Callback:  irq.Callback(in.Callback),
		})
		if err != nil {
			return nil, fmt.Errorf("tableconf: %w", err)
		}
	}

	return regs, nil
}

// Build is Apply plus irq.Builder.Build against the given backend.
func (t *Table) Build(backend hwreg.Backend, opts ...irq.Option) (*irq.Controller, map[string]*hwreg.Register, error) {
	b := irq.NewBuilder()
	regs, err := t.Apply(b)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := b.Build(backend, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ctrl, regs, nil
}

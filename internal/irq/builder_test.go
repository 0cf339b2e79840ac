package irq

import (
	"testing"

	"github.com/tinyrange/irqgate/internal/hwreg"
)

func TestBuilderRejectsDuplicateName(t *testing.T) {
	b := NewBuilder()
	if err := b.Add(Interrupt{Name: "dmaDone"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := b.Add(Interrupt{Name: "dmaDone"}); err == nil {
		t.Fatalf("expected error for duplicate interrupt name")
	}
}

func TestBuilderRejectsEmptyName(t *testing.T) {
	if err := NewBuilder().Add(Interrupt{}); err == nil {
		t.Fatalf("expected error for empty interrupt name")
	}
}

func TestBuilderRejectsDuplicateResource(t *testing.T) {
	err := NewBuilder().Add(Interrupt{
		Name:      "uartRx",
		Resources: []Resource{"clkHF", "clkHF"},
	})
	if err == nil {
		t.Fatalf("expected error for resource listed twice")
	}
}

func TestBuilderRejectsClaimedField(t *testing.T) {
	reg := hwreg.MustRegister("intEnable0", 32)
	b := NewBuilder()
	if err := b.Add(Interrupt{Name: "a", Enable: hwreg.MustBit(reg, 0)}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	// Exact duplicate bit.
	if err := b.Add(Interrupt{Name: "b", Enable: hwreg.MustBit(reg, 0)}); err == nil {
		t.Fatalf("expected error for field claimed twice")
	}
	// Partial overlap through a multi-bit mask.
	wide, err := hwreg.NewField(reg, 0x3)
	if err != nil {
		t.Fatalf("NewField() error = %v", err)
	}
	if err := b.Add(Interrupt{Name: "c", Enable: wide}); err == nil {
		t.Fatalf("expected error for overlapping field mask")
	}
	// Same bit position in a different register is fine.
	other := hwreg.MustRegister("intEnable1", 32)
	if err := b.Add(Interrupt{Name: "d", Enable: hwreg.MustBit(other, 0)}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
}

func TestBuildRequiresBackend(t *testing.T) {
	if _, err := NewBuilder().Build(nil); err == nil {
		t.Fatalf("expected error for nil backend")
	}
}

func TestIndexDerivation(t *testing.T) {
	enable0 := hwreg.MustRegister("intEnable0", 32)
	enable1 := hwreg.MustRegister("intEnable1", 32)
	plain := hwreg.MustRegister("intEnablePlain", 32)

	irqs := []Interrupt{
		// Depends on clkHF; bit 0 of intEnable0.
		{Name: "dmaDone", Enable: hwreg.MustBit(enable0, 0), Resources: []Resource{"clkHF"}},
		// Depends on both clkHF and pwrRadio; bit 1 of intEnable0.
		{Name: "radioRx", Enable: hwreg.MustBit(enable0, 1), Resources: []Resource{"clkHF", "pwrRadio"}},
		// Resource-free; bit 2 of intEnable0.
		{Name: "tick", Enable: hwreg.MustBit(enable0, 2)},
		// Depends on pwrRadio; bit 4 of intEnable1.
		{Name: "radioTx", Enable: hwreg.MustBit(enable1, 4), Resources: []Resource{"pwrRadio"}},
		// Resource-free register: must not be affected.
		{Name: "gpio", Enable: hwreg.MustBit(plain, 0)},
		// No enable field, but its resource still counts.
		{Name: "watchdog", Resources: []Resource{"clkLF"}},
	}

	b := NewBuilder()
	for _, irq := range irqs {
		if err := b.Add(irq); err != nil {
			t.Fatalf("Add(%s) error = %v", irq.Name, err)
		}
	}

	ix := buildIndex(b.irqs)

	wantResources := []Resource{"clkHF", "pwrRadio", "clkLF"}
	if len(ix.allResources) != len(wantResources) {
		t.Fatalf("allResources = %v, want %v", ix.allResources, wantResources)
	}
	for i, res := range wantResources {
		if ix.allResources[i] != res {
			t.Fatalf("allResources[%d] = %q, want %q", i, ix.allResources[i], res)
		}
	}

	if len(ix.affectedRegs) != 2 {
		t.Fatalf("affectedRegs = %v, want intEnable0 and intEnable1", ix.affectedRegs)
	}
	if ix.affectedRegs[0].ID() != "intEnable0" || ix.affectedRegs[1].ID() != "intEnable1" {
		t.Fatalf("affectedRegs order = %v, %v", ix.affectedRegs[0], ix.affectedRegs[1])
	}

	// clkHF off: dmaDone and radioRx masked, tick stays; intEnable1 untouched.
	if got := ix.irqsAllowed["clkHF"]["intEnable0"]; got != 0x4 {
		t.Fatalf("irqsAllowed[clkHF][intEnable0] = 0x%x, want 0x4", got)
	}
	if got := ix.irqsAllowed["clkHF"]["intEnable1"]; got != 0x10 {
		t.Fatalf("irqsAllowed[clkHF][intEnable1] = 0x%x, want 0x10", got)
	}

	// pwrRadio off: radioRx and radioTx masked.
	if got := ix.irqsAllowed["pwrRadio"]["intEnable0"]; got != 0x5 {
		t.Fatalf("irqsAllowed[pwrRadio][intEnable0] = 0x%x, want 0x5", got)
	}
	if got := ix.irqsAllowed["pwrRadio"]["intEnable1"]; got != 0 {
		t.Fatalf("irqsAllowed[pwrRadio][intEnable1] = 0x%x, want 0", got)
	}

	// clkLF is only used by an interrupt without an enable field: nothing in
	// any register depends on it.
	if got := ix.irqsAllowed["clkLF"]["intEnable0"]; got != 0x7 {
		t.Fatalf("irqsAllowed[clkLF][intEnable0] = 0x%x, want 0x7", got)
	}
}

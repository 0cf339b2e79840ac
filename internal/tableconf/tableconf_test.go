package tableconf

import (
	"strings"
	"testing"

	"github.com/tinyrange/irqgate/internal/hwreg"
)

const sampleTable = `
registers:
  - id: intEnable0
  - id: intEnable1
    width: 16
interrupts:
  - name: dmaDone
    register: intEnable0
    bit: 0
    resources: [clkHF]
    callback: dmaDone
  - name: tick
    register: intEnable0
    bit: 1
    callback: tick
  - name: radioRx
    register: intEnable1
    mask: 0xc
    resources: [clkHF, pwrRadio]
    callback: radioRx
  - name: watchdog
    resources: [clkLF]
`

func TestLoadAndBuild(t *testing.T) {
	table, err := Load([]byte(sampleTable))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if table.Version != 1 {
		t.Fatalf("Version = %d after normalize, want 1", table.Version)
	}
	if table.Registers[0].Width != 32 {
		t.Fatalf("default width = %d, want 32", table.Registers[0].Width)
	}

	backend := hwreg.NewMemBackend()
	ctrl, regs, err := table.Build(backend)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	enable0, enable1 := regs["intEnable0"], regs["intEnable1"]
	if enable0 == nil || enable1 == nil {
		t.Fatalf("registers missing from Build result: %v", regs)
	}
	if enable1.Width() != 16 {
		t.Fatalf("intEnable1 width = %d, want 16", enable1.Width())
	}

	ctrl.Enable("dmaDone", "tick", "radioRx")
	if got := backend.Value(enable0); got != 0x3 {
		t.Fatalf("intEnable0 = 0x%x, want 0x3", got)
	}
	if got := backend.Value(enable1); got != 0xc {
		t.Fatalf("intEnable1 = 0x%x, want 0xc", got)
	}

	ctrl.TurnOffResource("clkHF")
	if got := backend.Value(enable0); got != 0x2 {
		t.Fatalf("intEnable0 = 0x%x with clkHF off, want 0x2", got)
	}
	if got := backend.Value(enable1); got != 0 {
		t.Fatalf("intEnable1 = 0x%x with clkHF off, want 0", got)
	}
}

func TestLoadFile(t *testing.T) {
	table, err := LoadFile("testdata/radio.yaml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(table.Registers) != 2 || len(table.Interrupts) != 3 {
		t.Fatalf("loaded %d registers, %d interrupts; want 2 and 3",
			len(table.Registers), len(table.Interrupts))
	}

	if _, err := LoadFile("testdata/missing.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad yaml",
			yaml: "registers: [",
			want: "parse",
		},
		{
			name: "unsupported version",
			yaml: "version: 2\nregisters:\n  - id: r\n",
			want: "unsupported version",
		},
		{
			name: "empty register id",
			yaml: "registers:\n  - width: 32\n",
			want: "empty id",
		},
		{
			name: "duplicate register",
			yaml: "registers:\n  - id: r\n  - id: r\n",
			want: "declared twice",
		},
		{
			name: "undeclared register",
			yaml: "interrupts:\n  - name: x\n    register: r\n    bit: 0\n",
			want: "undeclared register",
		},
		{
			name: "bit without register",
			yaml: "interrupts:\n  - name: x\n    bit: 3\n",
			want: "without a register",
		},
		{
			name: "bit and mask",
			yaml: "registers:\n  - id: r\ninterrupts:\n  - name: x\n    register: r\n    bit: 0\n    mask: 0x2\n",
			want: "both bit and mask",
		},
		{
			name: "register without bit",
			yaml: "registers:\n  - id: r\ninterrupts:\n  - name: x\n    register: r\n",
			want: "without bit or mask",
		},
		{
			name: "empty interrupt name",
			yaml: "interrupts:\n  - resources: [a]\n",
			want: "empty name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("Load() succeeded, want error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load() error = %v, want it to contain %q", err, tc.want)
			}
		})
	}
}

func TestApplyRejectsBadField(t *testing.T) {
	table, err := Load([]byte(`
registers:
  - id: r
    width: 8
interrupts:
  - name: x
    register: r
    bit: 9
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, _, err := table.Build(hwreg.NewMemBackend()); err == nil {
		t.Fatalf("expected error for bit out of register range")
	}
}

func TestApplyRejectsClaimedField(t *testing.T) {
	table, err := Load([]byte(`
registers:
  - id: r
interrupts:
  - name: a
    register: r
    bit: 0
  - name: b
    register: r
    bit: 0
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, _, err := table.Build(hwreg.NewMemBackend()); err == nil {
		t.Fatalf("expected error for field claimed by two interrupts")
	}
}

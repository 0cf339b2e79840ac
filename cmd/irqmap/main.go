package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tinyrange/irqgate/internal/hwreg"
	"github.com/tinyrange/irqgate/internal/irq"
	"github.com/tinyrange/irqgate/internal/tableconf"
)

func run() error {
	script := flag.String("script", "", "replay a transition script against the table")
	silent := flag.Bool("silent", false, "ignore unresolved callback names instead of warning")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `irqmap - inspect a declarative interrupt table

USAGE:
  irqmap [flags] <table.yaml>

Loads the table, prints the derived resource/register index, and optionally
replays a script of resource transitions and enable requests against an
in-memory backend, printing the register values after each step.

FLAGS:
  -script FILE   Replay FILE; one command per line, '#' starts a comment
  -silent        Ignore unresolved callback names instead of warning

SCRIPT COMMANDS:
  on RESOURCE          Mark a resource available
  off RESOURCE         Mark a resource unavailable
  enable CALLBACK...   Request interrupts by callback identity
  disable CALLBACK...  Withdraw requests by callback identity
  dump                 Print the current register values

EXAMPLES:
  irqmap table.yaml                      Show the derived index
  irqmap -script bringup.txt table.yaml  Replay a bring-up sequence
`)
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("expected exactly one table file")
	}

	table, err := tableconf.LoadFile(flag.Arg(0))
	if err != nil {
		return err
	}

	var opts []irq.Option
	if *silent {
		opts = append(opts, irq.WithNoMatchPolicy(irq.NoMatchSilent))
	}

	backend := hwreg.NewMemBackend()
	ctrl, regs, err := table.Build(backend, opts...)
	if err != nil {
		return err
	}

	printIndex(ctrl)

	if *script != "" {
		if err := replay(ctrl, backend, regs, *script); err != nil {
			return err
		}
	}
	return nil
}

func printIndex(ctrl *irq.Controller) {
	resources := ctrl.Resources()
	affected := ctrl.AffectedRegisters()

	fmt.Printf("resources (%d):\n", len(resources))
	for _, res := range resources {
		fmt.Printf("  %-16s %s\n", res, ctrl.ResourceStatus(res))
	}

	fmt.Printf("affected registers (%d):\n", len(affected))
	for _, reg := range affected {
		fmt.Printf("  %s\n", reg)
		for _, res := range resources {
			fmt.Printf("    allowed while %s off: %#0*x\n",
				res, int(reg.Width())/4+2, ctrl.IrqsAllowed(res, reg))
		}
	}
}

func replay(ctrl *irq.Controller, backend *hwreg.MemBackend, regs map[string]*hwreg.Register, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	lineno := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "on", "off":
			if len(args) != 1 {
				return fmt.Errorf("script line %d: %s takes one resource", lineno, cmd)
			}
			status := irq.StatusOn
			if cmd == "off" {
				status = irq.StatusOff
			}
			ctrl.UpdateResource(irq.Resource(args[0]), status)
		case "enable", "disable":
			if len(args) == 0 {
				return fmt.Errorf("script line %d: %s takes callbacks", lineno, cmd)
			}
			callbacks := make([]irq.Callback, 0, len(args))
			for _, a := range args {
				callbacks = append(callbacks, irq.Callback(a))
			}
			ctrl.EnableByName(cmd == "enable", callbacks...)
		case "dump":
		default:
			return fmt.Errorf("script line %d: unknown command %q", lineno, cmd)
		}

		fmt.Printf("%-24s", strings.Join(fields, " "))
		dumpRegisters(ctrl, backend, regs)
	}
	return scanner.Err()
}

func dumpRegisters(ctrl *irq.Controller, backend *hwreg.MemBackend, regs map[string]*hwreg.Register) {
	ids := make([]string, 0, len(regs))
	for id := range regs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		reg := regs[id]
		fmt.Printf(" %s=%#x(allowed=%#x,requested=%#x)",
			id, backend.Value(reg), ctrl.AllowedMask(reg), ctrl.RequestedMask(reg))
	}
	fmt.Println()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "irqmap: %v\n", err)
		os.Exit(1)
	}
}

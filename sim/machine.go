package sim

import (
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"rvemu/elfload"
	"rvemu/symtab"
)

// ErrAlreadyLoaded means a program was already loaded into this machine.
var ErrAlreadyLoaded = errors.New("machine already has a program loaded")

type Config struct {
	// MemBytes is the RAM size.
	MemBytes uint64
	// LoadBase is the relocation base handed to the loader; it is ignored
	// for pre-linked executables.
	LoadBase uint32
	// Demangle filters resolved symbol names through the demangler.
	Demangle bool
}

// Machine wires RAM, UART, bus, CPU and the symbol table together and
// orchestrates loading: read the whole file, construct the reader (which
// extracts symbols), materialize segments over the bus, then point the CPU
// at the entry address.
type Machine struct {
	ram  *RAM
	bus  *Bus
	cpu  *CPU
	syms *symtab.Table

	logger   log.Logger
	loadBase uint32
	loaded   bool
}

func NewMachine(cfg Config, logger log.Logger, out io.Writer) *Machine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	var topts []symtab.Option
	if cfg.Demangle {
		topts = append(topts, symtab.WithDemangle())
	}
	ram := NewRAM(cfg.MemBytes)
	bus := NewBus(ram, NewUART(out))
	return &Machine{
		ram:      ram,
		bus:      bus,
		cpu:      NewCPU(bus, logger),
		syms:     symtab.New(topts...),
		logger:   logger,
		loadBase: cfg.LoadBase,
	}
}

func (m *Machine) CPU() *CPU { return m.cpu }

func (m *Machine) Symbols() *symtab.Table { return m.syms }

// LoadELF reads the file at path, loads its segments and transfers execution
// to the computed entry point. A machine loads exactly once.
func (m *Machine) LoadELF(path string) error {
	if m.loaded {
		return ErrAlreadyLoaded
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read image")
	}
	r, err := elfload.NewReader(data, elfload.WithSymbolRegistry(m.syms))
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	if r.Machine() != elfload.EMRISCV {
		level.Warn(m.logger).Log("msg", "image is not a riscv binary", "machine", r.Machine())
	}

	res, err := r.LoadInto(m.bus, m.loadBase)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	m.loaded = true
	m.cpu.Start(res.Entry)

	level.Info(m.logger).Log(
		"msg", "program loaded",
		"path", path,
		"type", r.Type(),
		"build_id", r.BuildID(),
		"segments", r.NumSegments(),
		"sections", r.NumSections(),
		"entry", res.Entry,
		"relocated", res.Relocated,
		"symbols", m.syms.Len(),
	)
	return nil
}

// LoadBin places a flat binary at address 0 and starts there.
func (m *Machine) LoadBin(path string) error {
	if m.loaded {
		return ErrAlreadyLoaded
	}
	if err := m.ram.LoadFlat(path, 0); err != nil {
		return errors.Wrap(err, "load flat image")
	}
	m.loaded = true
	m.cpu.Start(0)
	return nil
}

// Run steps the CPU until halt or maxSteps and reports how it ended.
func (m *Machine) Run(maxSteps int) {
	steps := m.cpu.Run(maxSteps)
	level.Info(m.logger).Log("msg", "run finished", "steps", steps, "halt", m.cpu.HaltReason())
}

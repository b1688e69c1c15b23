package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"rvemu/sim"
)

func main() {
	var (
		elfPath  string
		binPath  string
		memMiB   int
		steps    int
		trace    bool
		verbose  bool
		startPC  uint32
		loadBase uint32
		demangle bool
		dumpSyms bool
	)

	cmd := &cobra.Command{
		Use:   "rvemu",
		Short: "Load a 32-bit ELF (or flat binary) and run it on an RV32I machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
			if verbose || trace {
				logger = level.NewFilter(logger, level.AllowDebug())
			} else {
				logger = level.NewFilter(logger, level.AllowInfo())
			}

			cfg := sim.Config{
				MemBytes: uint64(memMiB) * 1024 * 1024,
				LoadBase: loadBase,
				Demangle: demangle,
			}
			m := sim.NewMachine(cfg, logger, os.Stdout)
			level.Debug(logger).Log("msg", "machine built", "ram", humanize.IBytes(cfg.MemBytes))

			switch {
			case elfPath != "":
				if err := m.LoadELF(elfPath); err != nil {
					return err
				}
			case binPath != "":
				if err := m.LoadBin(binPath); err != nil {
					return err
				}
			default:
				return fmt.Errorf("no program provided, use --elf or --bin")
			}

			if dumpSyms {
				for _, s := range m.Symbols().Symbols() {
					fmt.Fprintf(os.Stderr, "%08x %6d t=%d %s\n", s.Addr, s.Size, s.Type, s.Name)
				}
			}

			m.CPU().Trace = trace
			if startPC != 0 {
				m.CPU().Start(startPC)
			}
			m.Run(steps)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&elfPath, "elf", "", "ELF file to load")
	cmd.Flags().StringVar(&binPath, "bin", "", "flat binary to load at 0x0")
	cmd.Flags().IntVar(&memMiB, "mem", 16, "RAM size in MiB")
	cmd.Flags().IntVar(&steps, "steps", 10_000_000, "max steps")
	cmd.Flags().BoolVar(&trace, "trace", false, "log each instruction")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "debug-level logs")
	cmd.Flags().Uint32Var(&startPC, "pc", 0, "override start PC (0 keeps loader entry)")
	cmd.Flags().Uint32Var(&loadBase, "base", 0, "relocation base for non-EXEC images")
	cmd.Flags().BoolVar(&demangle, "demangle", false, "demangle symbol names")
	cmd.Flags().BoolVar(&dumpSyms, "syms", false, "dump the extracted symbol table")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rvemu:", err)
		os.Exit(1)
	}
}

// cosmo is the CLI driver over pkg/cosmo: run scripts, compile/dump them to
// bytecode, load a dump back, or drop into a REPL (SPEC_FULL.md §1).
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/cosmolang/cosmo/internal/clihelp"
	"github.com/cosmolang/cosmo/pkg/cosmo"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr *os.File) int {
	flags := flag.NewFlagSet("cosmo", flag.ContinueOnError)
	flags.SetOutput(stderr)

	runScripts := flags.StringArrayP("script", "s", nil, "run the named script(s)")
	compileIn := flags.StringP("compile", "c", "", "compile this script and dump bytecode to the path given after it")
	loadDump := flags.StringP("load", "l", "", "execute a previously dumped bytecode file")
	repl := flags.BoolP("repl", "r", false, "start the REPL regardless of stdin")
	gcStress := flags.Bool("gc-stress", false, "force a GC cycle before every allocation")
	configPath := flags.String("config", "", "explicit .cosmorc path")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	cfg, err := clihelp.Load(workDir, *configPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return 1
	}

	s := cosmo.New()
	s.RegisterStdlib(stdout, stdin)
	s.SetStressGC(*gcStress || cfg.GCStress)

	switch {
	case *compileIn != "":
		out := flags.Arg(0)
		if out == "" {
			fmt.Fprintln(stderr, "error: -c requires an output path")

			return 2
		}

		if err := compileAndDump(s, *compileIn, out); err != nil {
			fmt.Fprintln(stderr, "error:", err)

			return 1
		}

		return 0

	case *loadDump != "":
		if err := runDump(s, *loadDump); err != nil {
			fmt.Fprintln(stderr, "error:", err)

			return 1
		}

		return 0

	case len(*runScripts) > 0:
		for _, path := range *runScripts {
			if err := runScript(s, path); err != nil {
				fmt.Fprintln(stderr, "error:", err)

				return 1
			}
		}

		return 0

	case *repl || (clihelp.IsTerminal(stdin) && flags.NArg() == 0):
		if err := runREPL(s, stdin, stdout, cfg); err != nil {
			fmt.Fprintln(stderr, "error:", err)

			return 1
		}

		return 0

	default:
		for _, path := range flags.Args() {
			if err := runScript(s, path); err != nil {
				fmt.Fprintln(stderr, "error:", err)

				return 1
			}
		}

		return 0
	}
}

func runScript(s *cosmo.State, path string) error {
	src, err := os.ReadFile(path) //nolint:gosec // script path is operator-supplied by design
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	fn, err := s.CompileString(string(src), filepath.Base(path))
	if err != nil {
		return err
	}

	_, err = s.Call(fn, nil)

	return err
}

// compileAndDump compiles a source file and writes its bytecode to out,
// guarded by an advisory lock and written atomically (SPEC_FULL.md §3) so a
// crash mid-write never leaves a torn dump file at out.
func compileAndDump(s *cosmo.State, in, out string) error {
	src, err := os.ReadFile(in) //nolint:gosec
	if err != nil {
		return fmt.Errorf("reading %s: %w", in, err)
	}

	fn, err := s.CompileString(string(src), filepath.Base(in))
	if err != nil {
		return err
	}

	lock, err := clihelp.AcquireLock(out)
	if err != nil {
		return err
	}
	defer lock.Release()

	var buf bytes.Buffer
	if err := s.Dump(&buf, fn); err != nil {
		return err
	}

	return atomic.WriteFile(out, &buf)
}

func runDump(s *cosmo.State, path string) error {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fn, err := s.Undump(f)
	if err != nil {
		return err
	}

	_, err = s.Call(fn, nil)

	return err
}

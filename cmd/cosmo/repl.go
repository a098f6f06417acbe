package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/cosmolang/cosmo/internal/clihelp"
	"github.com/cosmolang/cosmo/pkg/cosmo"
)

// runREPL is a read-eval-print loop over peterh/liner (grounded on
// cmd/sloty's REPL loop: prompt, persistent history file, Ctrl-C abort),
// re-purposed to feed each line to the Cosmo compiler/VM instead of
// slotcache commands.
func runREPL(s *cosmo.State, stdin *os.File, stdout io.Writer, cfg clihelp.Config) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	if f, err := os.Open(cfg.HistoryFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	fmt.Fprintln(stdout, "cosmo REPL — Ctrl-D to exit")

	chunkNo := 0

	for {
		input, err := line.Prompt("cosmo> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(stdout, "\nbye")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)
		chunkNo++

		fn, err := s.CompileString(input, fmt.Sprintf("repl:%d", chunkNo))
		if err != nil {
			fmt.Fprintln(stdout, "error:", err)

			continue
		}

		results, err := s.Pcall(fn, nil)
		if err != nil {
			fmt.Fprintln(stdout, "error:", err)

			continue
		}

		for _, v := range results {
			if !v.IsNil() {
				fmt.Fprintln(stdout, v.String())
			}
		}
	}

	saveHistory(line, cfg.HistoryFile)

	return nil
}

func saveHistory(line *liner.State, path string) {
	if path == "" {
		return
	}

	if f, err := os.Create(path); err == nil { //nolint:gosec
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// Illusions CLI - runs game scripts headlessly
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/illusions/lib/journal"
	"github.com/chazu/illusions/manifest"
	"github.com/chazu/illusions/pkg/script"
	"github.com/chazu/illusions/vm"
	"github.com/chazu/illusions/vm/snapshot"
)

type config struct {
	dir          string
	frames       int
	verbosity    int
	disasm       bool
	trace        bool
	snapshotPath string
	journalPath  string
	skipAt       int
	abortAt      int
}

func main() {
	var cfg config
	flag.StringVar(&cfg.dir, "dir", ".", "Game directory (searched upward for game.toml)")
	flag.IntVar(&cfg.frames, "frames", 0, "Number of frames to run (default from manifest)")
	flag.IntVar(&cfg.verbosity, "v", -1, "Log verbosity, 0-3 (default from manifest)")
	flag.BoolVar(&cfg.disasm, "disasm", false, "Print the assembled script and exit")
	flag.BoolVar(&cfg.trace, "trace", false, "Log every executed instruction")
	flag.StringVar(&cfg.snapshotPath, "snapshot", "", "Write a CBOR snapshot of the threads after the run")
	flag.StringVar(&cfg.journalPath, "journal", "", "Record scheduler events in this SQLite database")
	flag.IntVar(&cfg.skipAt, "skip-at", 0, "Press skip at this frame")
	flag.IntVar(&cfg.abortAt, "abort-at", 0, "Press abort at this frame")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: illusions [options]\n\n")
		fmt.Fprintf(os.Stderr, "Assembles the script named in game.toml and runs its threads headlessly.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  illusions -dir ./game                 # Run with manifest settings\n")
		fmt.Fprintf(os.Stderr, "  illusions -disasm                     # List the assembled script\n")
		fmt.Fprintf(os.Stderr, "  illusions -frames 300 -abort-at 120   # Abort a cutscene at frame 120\n")
	}
	flag.Parse()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	m, err := manifest.FindAndLoad(cfg.dir)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no %s found from %s", manifest.FileName, cfg.dir)
	}

	verbosity := m.Log.Verbosity
	if cfg.verbosity >= 0 {
		verbosity = cfg.verbosity
	}
	if logPath := m.LogPath(); logPath != "" {
		commonlog.Configure(verbosity, &logPath)
	} else {
		commonlog.Configure(verbosity, nil)
	}

	src, err := os.ReadFile(m.ScriptPath())
	if err != nil {
		return fmt.Errorf("cannot read script: %w", err)
	}
	prog, err := script.Assemble(string(src), m.Dialect())
	if err != nil {
		return fmt.Errorf("%s: %w", m.ScriptPath(), err)
	}

	if cfg.disasm {
		fmt.Print(prog.DisassembleWithName(m.Dialect(), m.Game.Name))
		return nil
	}

	opts := m.Options()
	if cfg.trace {
		opts.Trace = true
	}

	journalPath := m.JournalPath()
	if cfg.journalPath != "" {
		journalPath = cfg.journalPath
	}
	if journalPath != "" {
		j, err := journal.Open(journalPath, m.Game.Name)
		if err != nil {
			return fmt.Errorf("cannot open journal: %w", err)
		}
		defer j.Close()
		opts.Observer = j
	}

	h := newHeadless(os.Stdout)
	h.input.at(cfg.skipAt, vm.EventSkip)
	h.input.at(cfg.abortAt, vm.EventAbort)
	svc := h.services()
	svc.Talk = m.TalkTable()
	e := vm.NewEngine(prog, svc, opts)

	err = e.WithThreadInit(func() {
		if m.Script.Scene != 0 {
			e.EnterScene(m.Script.Scene, 0)
		}
		for _, id := range m.EntryThreads() {
			if e.StartScriptThread(id, 0, vm.Args{}) == nil {
				fmt.Fprintf(os.Stderr, "Warning: no code for entry thread %s\n", id)
			}
		}
	})
	if err != nil {
		return err
	}

	frames := m.Run.Frames
	if cfg.frames > 0 {
		frames = cfg.frames
	}
	ran := 0
	for ran < frames && e.Threads().Len() > 0 {
		ran++
		h.input.frame = ran
		h.clock.Advance(1)
		if err := e.RunFrame(); err != nil {
			return err
		}
	}
	fmt.Printf("Ran %d frames, %d threads live\n", ran, e.Threads().Len())

	snapshotPath := m.SnapshotPath()
	if cfg.snapshotPath != "" {
		snapshotPath = cfg.snapshotPath
	}
	if snapshotPath != "" {
		data, err := snapshot.Marshal(snapshot.Capture(e))
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		if err := os.WriteFile(snapshotPath, data, 0644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}
	return nil
}

// Package manifest handles game.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/illusions/pkg/script"
	"github.com/chazu/illusions/vm"
)

// FileName is the manifest file looked up in a game directory.
const FileName = "game.toml"

// Manifest represents a game.toml configuration.
type Manifest struct {
	Game   Game   `toml:"game"`
	Script Script `toml:"script"`
	Talk   Talk   `toml:"talk"`
	Log    Log    `toml:"log"`
	Run    Run    `toml:"run"`

	// Dir is the directory containing the game.toml file (set at load time).
	Dir string `toml:"-"`
}

// Game contains game metadata.
type Game struct {
	Name    string `toml:"name"`
	Dialect string `toml:"dialect"`
}

// Script locates the script source and its entry threads.
type Script struct {
	File  string `toml:"file"`
	Entry []int  `toml:"entry"`
	Scene uint32 `toml:"scene"` // entered before the entry threads start
}

// Talk configures dialogue timing and the talk table.
type Talk struct {
	SubtitleDuration uint32     `toml:"subtitle-duration"`
	MinTextDuration  uint32     `toml:"min-text-duration"`
	MaxTextDuration  uint32     `toml:"max-text-duration"`
	Lines            []TalkLine `toml:"lines"`
}

// TalkLine is one entry of the talk table.
type TalkLine struct {
	ID    uint32 `toml:"id"`
	Text  string `toml:"text"`
	Voice string `toml:"voice"`
	Table uint32 `toml:"table"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Run configures a headless run.
type Run struct {
	Frames   int    `toml:"frames"`
	Trace    bool   `toml:"trace"`
	Journal  string `toml:"journal"`
	Snapshot string `toml:"snapshot"`
}

// Load parses a game.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes manifest text, applies defaults and validates it.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}

	defaults := vm.DefaultOptions()

	// Defaults
	if m.Game.Dialect == "" {
		m.Game.Dialect = defaults.Dialect.String()
	}
	if m.Script.File == "" {
		m.Script.File = "main.asm"
	}
	if len(m.Script.Entry) == 0 {
		m.Script.Entry = []int{0}
	}
	if m.Talk.SubtitleDuration == 0 {
		m.Talk.SubtitleDuration = defaults.SubtitleDuration
	}
	if m.Talk.MinTextDuration == 0 {
		m.Talk.MinTextDuration = defaults.MinTextDuration
	}
	if m.Talk.MaxTextDuration == 0 {
		m.Talk.MaxTextDuration = defaults.MaxTextDuration
	}
	if m.Run.Frames == 0 {
		m.Run.Frames = 600
	}

	if _, err := script.ParseDialect(m.Game.Dialect); err != nil {
		return nil, err
	}
	if m.Talk.MinTextDuration > m.Talk.MaxTextDuration {
		return nil, fmt.Errorf("min-text-duration %d exceeds max-text-duration %d",
			m.Talk.MinTextDuration, m.Talk.MaxTextDuration)
	}
	seen := make(map[uint32]bool, len(m.Talk.Lines))
	for _, line := range m.Talk.Lines {
		if seen[line.ID] {
			return nil, fmt.Errorf("duplicate talk line %08X", line.ID)
		}
		seen[line.ID] = true
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a game.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Dialect returns the configured header dialect.
func (m *Manifest) Dialect() script.Dialect {
	d, _ := script.ParseDialect(m.Game.Dialect)
	return d
}

// Options converts the manifest into engine options.
func (m *Manifest) Options() vm.Options {
	opts := vm.DefaultOptions()
	opts.Dialect = m.Dialect()
	opts.SubtitleDuration = m.Talk.SubtitleDuration
	opts.MinTextDuration = m.Talk.MinTextDuration
	opts.MaxTextDuration = m.Talk.MaxTextDuration
	opts.Trace = m.Run.Trace
	return opts
}

// EntryThreads returns the ids of the threads started at boot.
func (m *Manifest) EntryThreads() []vm.ThreadID {
	ids := make([]vm.ThreadID, len(m.Script.Entry))
	for i, index := range m.Script.Entry {
		ids[i] = vm.ScriptThreadID(index)
	}
	return ids
}

// TalkTable returns the configured talk lines as a vm.TalkTable.
func (m *Manifest) TalkTable() TalkTable {
	t := make(TalkTable, len(m.Talk.Lines))
	for _, line := range m.Talk.Lines {
		t[line.ID] = vm.TalkEntry{Text: line.Text, VoiceName: line.Voice, Table: line.Table}
	}
	return t
}

// TalkTable maps talk ids to lines.
type TalkTable map[uint32]vm.TalkEntry

// TalkEntry implements vm.TalkTable.
func (t TalkTable) TalkEntry(talkID uint32) (vm.TalkEntry, bool) {
	e, ok := t[talkID]
	return e, ok
}

// ScriptPath returns the absolute path of the script source.
func (m *Manifest) ScriptPath() string {
	return m.resolve(m.Script.File)
}

// JournalPath returns the journal database path, or "" if disabled.
func (m *Manifest) JournalPath() string {
	return m.resolve(m.Run.Journal)
}

// SnapshotPath returns the snapshot output path, or "" if disabled.
func (m *Manifest) SnapshotPath() string {
	return m.resolve(m.Run.Snapshot)
}

// LogPath returns the log file path, or "" for stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

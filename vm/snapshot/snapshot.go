// Package snapshot captures the scheduler state of an engine as CBOR.
package snapshot

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/illusions/vm"
)

// Version is the snapshot format version.
const Version = 1

// cborEncMode uses canonical mode so equal states encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is the scheduler state at the end of a frame.
type Snapshot struct {
	Version      int            `cbor:"1,keyasint"`
	Frame        uint64         `cbor:"2,keyasint"`
	CurrentScene uint32         `cbor:"3,keyasint"`
	PrevScene    uint32         `cbor:"4,keyasint"`
	ActiveScenes []uint32       `cbor:"5,keyasint,omitempty"`
	PauseCount   int            `cbor:"6,keyasint,omitempty"`
	Stack        []int16        `cbor:"7,keyasint,omitempty"`
	Threads      []ThreadRecord `cbor:"8,keyasint"`
}

// ThreadRecord is one live thread.
type ThreadRecord struct {
	ID           uint32 `cbor:"1,keyasint"`
	Kind         string `cbor:"2,keyasint"`
	CallingID    uint32 `cbor:"3,keyasint,omitempty"`
	SceneID      uint32 `cbor:"4,keyasint,omitempty"`
	NotifyFlags  uint32 `cbor:"5,keyasint,omitempty"`
	PauseCount   int    `cbor:"6,keyasint,omitempty"`
	SuspendCount int    `cbor:"7,keyasint,omitempty"`
	IP           int    `cbor:"8,keyasint,omitempty"`
	Status       int    `cbor:"9,keyasint,omitempty"`
	Flags        int    `cbor:"10,keyasint,omitempty"`
	Target       uint32 `cbor:"11,keyasint,omitempty"`
	Remaining    uint32 `cbor:"12,keyasint,omitempty"`
}

// Capture records the live threads of e in scheduling order. Threads
// terminated but not yet dropped are left out.
func Capture(e *vm.Engine) *Snapshot {
	s := &Snapshot{
		Version:      Version,
		Frame:        e.Frame(),
		CurrentScene: e.CurrentScene(),
		PrevScene:    e.PrevScene(),
		ActiveScenes: e.ActiveScenes(),
		PauseCount:   e.PauseCount(),
		Stack:        e.Stack().Values(),
	}
	for _, t := range e.Threads().Threads() {
		if t.Terminated() {
			continue
		}
		s.Threads = append(s.Threads, recordOf(t.Info()))
	}
	return s
}

func recordOf(info vm.ThreadInfo) ThreadRecord {
	return ThreadRecord{
		ID:           uint32(info.ID),
		Kind:         info.Kind.String(),
		CallingID:    uint32(info.CallingID),
		SceneID:      info.SceneID,
		NotifyFlags:  info.NotifyFlags,
		PauseCount:   info.PauseCount,
		SuspendCount: info.SuspendCount,
		IP:           info.IP,
		Status:       info.Status,
		Flags:        info.Flags,
		Target:       uint32(info.Target),
		Remaining:    info.Remaining,
	}
}

// Thread returns the record with the id.
func (s *Snapshot) Thread(id vm.ThreadID) (ThreadRecord, bool) {
	for _, r := range s.Threads {
		if r.ID == uint32(id) {
			return r, true
		}
	}
	return ThreadRecord{}, false
}

// Marshal serializes a Snapshot to CBOR bytes.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal deserializes a Snapshot from CBOR bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", s.Version)
	}
	return &s, nil
}

// Package lifecycle makes start/stop/status behave sensibly across
// independent process invocations of the toolkit's front-end, backed by
// a single on-disk state record. Grounded on the teacher's main.go
// startup sequencing (config load → bind → serve, all-or-nothing fatal
// errors), generalized from an in-process-only server to one whose
// running/not-running status must survive across separate invocations.
package lifecycle

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kshinn/x402toolkit/internal/domain"
)

// State is the small on-disk record used only to answer "is it
// running?" across separate invocations. Its field set is fixed; it is
// rewritten as a whole, never appended to or patched.
type State struct {
	Pid       int    `json:"pid"`
	Port      int    `json:"port"`
	StartedAt string `json:"started_at"`
	// ConfigSnapshot holds an opaque, caller-supplied JSON blob of the
	// resolved configuration that was in effect at start time.
	ConfigSnapshot json.RawMessage `json:"config_snapshot,omitempty"`
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "x402toolkit")
}

func statePath(dir string) string {
	return filepath.Join(dir, "mockserver.state")
}

// readState loads the state file from dir. A missing file is reported
// as (nil, nil) — absence of file means "not running", not an error.
func readState(dir string) (*State, error) {
	raw, err := os.ReadFile(statePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// writeStateExclusive atomically creates the state file, failing if one
// already exists. It writes to a temp file in the same directory first,
// then hard-links the temp file into place — a link fails with EEXIST
// if the destination already exists, giving exclusive-creation
// semantics on top of atomic, fully-formed content (no reader ever sees
// a partially written file).
func writeStateExclusive(dir string, s State) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "mockserver.state.tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Link(tmpPath, statePath(dir)); err != nil {
		return err
	}
	return nil
}

// deleteState removes the state file. Removing an absent file is not an
// error.
func deleteState(dir string) error {
	err := os.Remove(statePath(dir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func nowString() string { return domain.Now().String() }

package lambdas

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"stepfunction-cloner/cloneerr"
)

const (
	PackageExt = ".zip"
	// SnapshotFileName is the environment snapshot written next to the
	// downloaded packages.
	SnapshotFileName = "lambda-envs.json"
)

// Snapshot maps a function short name to its environment variables.
type Snapshot map[string]map[string]string

// WriteSnapshot writes snap to <dir>/lambda-envs.json and returns the path.
func WriteSnapshot(dir string, snap Snapshot) (string, error) {
	if snap == nil {
		snap = Snapshot{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", cloneerr.Wrap(cloneerr.WriteFailed, err, "marshal environment snapshot")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", cloneerr.Wrap(cloneerr.WriteFailed, err, "create output directory %s", dir)
	}
	path := filepath.Join(dir, SnapshotFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", cloneerr.Wrap(cloneerr.WriteFailed, err, "write %s", path)
	}
	return path, nil
}

// ReadSnapshot parses a snapshot or an explicit environment file. Values that
// are not JSON strings are kept as their JSON text.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.ReadFailed, err, "read environment file %s", path)
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, cloneerr.Wrap(cloneerr.MalformedEnvironment, err, "parse environment file %s", path)
	}

	snap := make(Snapshot, len(raw))
	for name, vars := range raw {
		env := make(map[string]string, len(vars))
		for k, v := range vars {
			s, err := stringify(v)
			if err != nil {
				return nil, cloneerr.Wrap(cloneerr.MalformedEnvironment, err, "%s: %s.%s", path, name, k)
			}
			env[k] = s
		}
		snap[name] = env
	}
	return snap, nil
}

func stringify(value json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}

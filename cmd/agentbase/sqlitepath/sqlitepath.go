// Package sqlitepath locates the SQLite database used by local agentbase
// deployments.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/agentbase/pkg/dotdir"
)

// FileName is the database file created inside the .agentbase/ directory.
const FileName = "agentbase.sqlite"

// ResolveSQLitePath returns the path of an existing database: the override,
// then AGENTBASE_SQLITE, then the first candidate file that exists.
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("AGENTBASE_SQLITE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New("could not find agentbase SQLite database; pass --sqlite")
}

// DefaultSQLitePath is like ResolveSQLitePath but falls back to a new file in
// the resolved .agentbase/ directory, creating ~/.agentbase/ if needed.
func DefaultSQLitePath(override, configDir string) (string, error) {
	if path, err := ResolveSQLitePath(override); err == nil {
		return path, nil
	}

	dir, err := dotdir.NewManager().Ensure(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		FileName,
		filepath.Join(".agentbase", FileName),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".agentbase", FileName))
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates, filepath.Join(xdgHome, "agentbase", FileName))
	}

	return candidates
}

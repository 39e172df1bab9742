package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// DataDirName is the per-project directory that holds local history
const DataDirName = ".bmi"

// DiscoverPath returns where the given backend keeps its data.
//
// Lookup order:
//  1. BMI_DB_PATH environment variable, used as-is (allows ":memory:" and test isolation)
//  2. a .bmi/ directory in the current working directory (project-local history)
//  3. the per-user config directory, e.g. ~/.config/bmi
//
// The directory is not created here; backends create it on open.
func DiscoverPath(backend Backend) (string, error) {
	if p := os.Getenv("BMI_DB_PATH"); p != "" {
		return p, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	if dir, ok := localDataDir(cwd); ok {
		return pathInDir(dir, backend), nil
	}

	userDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf(
			"no %s/ directory in %s and no user config directory available: %w\n"+
				"  Use --db to specify the storage path explicitly",
			DataDirName, cwd, err)
	}
	return pathInDir(filepath.Join(userDir, "bmi"), backend), nil
}

// localDataDir checks for .bmi/ in dir only. It does not walk up the tree,
// so a nested project never picks up its parent's history.
func localDataDir(dir string) (string, bool) {
	local := filepath.Join(dir, DataDirName)
	info, err := os.Stat(local)
	if err != nil || !info.IsDir() {
		return "", false
	}
	abs, err := filepath.Abs(local)
	if err != nil {
		return "", false
	}
	return abs, true
}

func pathInDir(dir string, backend Backend) string {
	if backend == BackendFile {
		return filepath.Join(dir, "slots")
	}
	return filepath.Join(dir, "history.db")
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"hullcraft.io/internal/persistence/indexdb"
)

// openHangar picks the hangar index backend. A nil index with a nil error
// means indexing is off and saves are still written to disk.
func openHangar(dataDir string, disable bool, log *zap.Logger) (*indexdb.SQLiteIndex, error) {
	if disable {
		return nil, nil
	}
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("HC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}
	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "hangar.sqlite"), log)
	default:
		return nil, fmt.Errorf("unsupported HC_INDEX_BACKEND: %s", backend)
	}
}

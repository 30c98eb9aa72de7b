// Package archive keeps earlier saves of a ship when a new save replaces
// them.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"hullcraft.io/internal/persistence/snapshot"
)

type RevisionMeta struct {
	ShipID     string `json:"ship_id"`
	Name       string `json:"name"`
	Digest     string `json:"digest"`
	SavedAt    int64  `json:"saved_at"`
	File       string `json:"file"`
	ArchivedAt string `json:"archived_at"`
}

// Dir is where revisions of one ship live under a save directory.
func Dir(saveDir, shipID string) string {
	return filepath.Join(saveDir, "archive", shipID)
}

// KeepRevision copies the save at path into the ship's archive directory
// before it is overwritten, then prunes the archive to the newest keep
// revisions. A missing save is not an error.
func KeepRevision(saveDir, path string, keep int) (archivedPath string, archived bool, err error) {
	hdr, err := snapshot.ReadHeader(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	dir := Dir(saveDir, hdr.ShipID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}

	// Zero-padded so lexical order is save order.
	dst := filepath.Join(dir, fmt.Sprintf("%013d.ship.zst", hdr.SavedAt))
	if err := copyFile(path, dst); err != nil {
		return "", false, err
	}
	meta := RevisionMeta{
		ShipID:     hdr.ShipID,
		Name:       hdr.Name,
		Digest:     hdr.Digest,
		SavedAt:    hdr.SavedAt,
		File:       filepath.Base(dst),
		ArchivedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(dst+".json", b, 0o644)
	}

	if keep > 0 {
		if err := prune(dir, keep); err != nil {
			return dst, true, err
		}
	}
	return dst, true, nil
}

// Revisions lists archived saves of a ship, oldest first.
func Revisions(saveDir, shipID string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(Dir(saveDir, shipID), "*.ship.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func prune(dir string, keep int) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.ship.zst"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for len(files) > keep {
		if err := os.Remove(files[0]); err != nil {
			return err
		}
		_ = os.Remove(files[0] + ".json")
		files = files[1:]
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

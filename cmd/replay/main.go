package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hullcraft.io/internal/logging"
	persistlog "hullcraft.io/internal/persistence/log"
	"hullcraft.io/internal/persistence/snapshot"
	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/build"
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/tuning"
)

type options struct {
	DataDir     string
	ShipID      string
	Snapshot    string
	Expect      string
	CatalogPath string
	TuningPath  string
	LogLevel    string
}

func main() {
	if err := newCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:          "replay",
		Short:        "Rebuild a ship from the builder audit log and verify its layout digest",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(logging.Options{Level: o.LogLevel})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return run(o, cmd.OutOrStdout(), log)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.DataDir, "data", "./data", "runtime data directory holding audit/")
	f.StringVar(&o.ShipID, "ship", "", "ship id to rebuild")
	f.StringVar(&o.Snapshot, "snapshot", "", "save the history was last restored from (required when the log holds a RESTORE)")
	f.StringVar(&o.Expect, "expect", "", "save whose layout digest the replay must reproduce (optional)")
	f.StringVar(&o.CatalogPath, "catalog", "", "path to blocks.json (default: built-in blocks)")
	f.StringVar(&o.TuningPath, "tuning", "", "path to tuning.yaml (default: built-in tuning)")
	f.StringVar(&o.LogLevel, "log-level", "warn", "log level")
	_ = cmd.MarkFlagRequired("ship")
	return cmd
}

func run(o options, out io.Writer, log *zap.Logger) error {
	id, err := uuid.Parse(o.ShipID)
	if err != nil {
		return fmt.Errorf("ship id: %w", err)
	}
	cat := catalogs.Builtin()
	if o.CatalogPath != "" {
		if cat, err = catalogs.LoadFile(o.CatalogPath); err != nil {
			return err
		}
	}
	tun := tuning.Defaults()
	if o.TuningPath != "" {
		if tun, err = tuning.Load(o.TuningPath); err != nil {
			return err
		}
	}

	files, err := persistlog.AuditFiles(o.DataDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no audit files found in %s", o.DataDir)
	}
	var entries []build.AuditEntry
	for _, path := range files {
		es, err := persistlog.ReadAuditFile(path)
		if err != nil {
			return err
		}
		entries = append(entries, es...)
	}

	b := build.New(build.Config{Catalog: cat, Tuning: tun, Engine: physics.NewWorld(), Log: log, ShipID: id})
	defer b.Close()

	base, rest := build.ReplaySegment(entries, id.String())
	if base != nil {
		if o.Snapshot == "" {
			return fmt.Errorf("history restores digest %s; pass it with --snapshot", base.Digest)
		}
		snap, err := snapshot.Read(o.Snapshot)
		if err != nil {
			return err
		}
		if snap.Header.Digest != base.Digest {
			return fmt.Errorf("snapshot digest %s, history restored %s", snap.Header.Digest, base.Digest)
		}
		if err := b.Restore(snap); err != nil {
			return err
		}
	}

	applied, err := b.ReplayAll(rest)
	if err != nil {
		return err
	}
	got := b.Snapshot()
	rep := b.Validate()
	fmt.Fprintf(out, "replay ok: ship=%s applied=%d blocks=%d connections=%d valid=%t frozen=%t digest=%s\n",
		id, applied, len(got.Blocks), len(got.Connections), rep.Valid, got.Frozen, got.Header.Digest)

	if o.Expect != "" {
		want, err := snapshot.ReadHeader(o.Expect)
		if err != nil {
			return err
		}
		if want.Digest != got.Header.Digest {
			return errors.New("digest mismatch: got " + got.Header.Digest + " want " + want.Digest)
		}
		fmt.Fprintf(out, "digest matches %s\n", o.Expect)
	}
	return nil
}

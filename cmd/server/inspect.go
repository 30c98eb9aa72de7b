package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hullcraft.io/internal/persistence/snapshot"
	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/sim/build"
	"hullcraft.io/internal/sim/ship"
	"hullcraft.io/internal/transport/ws"
)

var errInvalidSave = errors.New("ship failed validation")

type checkReport struct {
	ShipID      string               `json:"ship_id"`
	Name        string               `json:"name"`
	Digest      string               `json:"digest"`
	DigestOK    bool                 `json:"digest_ok"`
	CatalogOK   bool                 `json:"catalog_ok"`
	Frozen      bool                 `json:"frozen"`
	Blocks      int                  `json:"blocks"`
	Connections int                  `json:"connections"`
	Integrity   ship.IntegrityReport `json:"integrity"`
	Stats       ship.Stats           `json:"stats"`
}

// inspect rebuilds a saved ship in a throwaway engine.
func inspect(path string, cf configFlags, log *zap.Logger) (checkReport, error) {
	cat, tun, err := cf.load(log)
	if err != nil {
		return checkReport{}, err
	}
	snap, err := snapshot.Read(path)
	if err != nil {
		return checkReport{}, err
	}
	b := build.New(build.Config{Catalog: cat, Tuning: tun, Engine: physics.NewWorld(), Log: log})
	defer b.Close()
	if err := b.Restore(snap); err != nil {
		return checkReport{}, err
	}
	rep := checkReport{
		ShipID:    snap.Header.ShipID,
		Name:      snap.Header.Name,
		Digest:    snap.Header.Digest,
		DigestOK:  snapshot.Digest(snap) == snap.Header.Digest,
		CatalogOK: snap.CatalogDigest == cat.Digest(),
		Frozen:    snap.Frozen,
		Integrity: b.Validate(),
		Stats:     b.Stats(),
	}
	_ = b.View(func(s *ship.Ship) error {
		rep.Blocks, rep.Connections = s.Len(), s.ConnectionCount()
		return nil
	})
	return rep, nil
}

func newCheckCmd() *cobra.Command {
	var cf configFlags
	cmd := &cobra.Command{
		Use:   "check <save.ship.zst>",
		Short: "Validate a saved ship; exits non-zero when it is not flight-ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := inspect(args[0], cf, loggerFrom(cmd.Context()))
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if !rep.Integrity.Valid || !rep.DigestOK {
				return errInvalidSave
			}
			return nil
		},
	}
	cf.register(cmd)
	return cmd
}

func newStatsCmd() *cobra.Command {
	var cf configFlags
	cmd := &cobra.Command{
		Use:   "stats <save.ship.zst>",
		Short: "Print aggregate stats of a saved ship",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := inspect(args[0], cf, loggerFrom(cmd.Context()))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep.Stats)
		},
	}
	cf.register(cmd)
	return cmd
}

func newCatalogCmd() *cobra.Command {
	var (
		cf   configFlags
		full bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the block catalog the server would load",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := cf.load(loggerFrom(cmd.Context()))
			if err != nil {
				return err
			}
			if full {
				return printJSON(cmd.OutOrStdout(), ws.CatalogMessage(cat))
			}
			w := cmd.OutOrStdout()
			for _, id := range cat.IDs() {
				def, _ := cat.Get(id)
				fmt.Fprintf(w, "%-16s %-10s %3gx%-3g mass=%g points=%d\n",
					id, def.Category, def.Width, def.Height, def.Mass, len(def.AttachPoints))
			}
			fmt.Fprintf(w, "digest %s\n", cat.Digest())
			return nil
		},
	}
	cf.register(cmd)
	cmd.Flags().BoolVar(&full, "json", false, "print the full CATALOG message")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

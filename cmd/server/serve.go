package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hullcraft.io/internal/persistence/indexdb"
	persistlog "hullcraft.io/internal/persistence/log"
	"hullcraft.io/internal/protocol"
	"hullcraft.io/internal/sim/build"
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/tuning"
	"hullcraft.io/internal/transport/ws"
)

type configFlags struct {
	ConfigDir   string
	TuningPath  string
	CatalogPath string
}

func (c *configFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.ConfigDir, "configs", "./configs", "config directory")
	f.StringVar(&c.TuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	f.StringVar(&c.CatalogPath, "catalog", "", "path to blocks.json (default: <configs>/blocks.json)")
}

func (c configFlags) load(log *zap.Logger) (*catalogs.Catalog, tuning.Tuning, error) {
	return loadConfig(c.ConfigDir, c.TuningPath, c.CatalogPath, log)
}

type serveOptions struct {
	configFlags
	Addr          string
	DataDir       string
	DisableDB     bool
	KeepRevisions int
}

func newServeCmd() *cobra.Command {
	var o serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket ship builder",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), o, loggerFrom(cmd.Context()))
		},
	}
	o.register(cmd)
	f := cmd.Flags()
	f.StringVar(&o.Addr, "addr", ":8080", "http listen address")
	f.StringVar(&o.DataDir, "data", "./data", "runtime data directory")
	f.BoolVar(&o.DisableDB, "disable_db", false, "disable the hangar index")
	f.IntVar(&o.KeepRevisions, "keep_revisions", 5, "earlier saves kept per ship (0 disables the archive)")
	return cmd
}

// loadConfig falls back to built-in defaults when a file is absent; a file
// that exists but does not parse is an error.
func loadConfig(configDir, tuningPath, catalogPath string, log *zap.Logger) (*catalogs.Catalog, tuning.Tuning, error) {
	if strings.TrimSpace(tuningPath) == "" {
		tuningPath = filepath.Join(configDir, "tuning.yaml")
	}
	if strings.TrimSpace(catalogPath) == "" {
		catalogPath = filepath.Join(configDir, "blocks.json")
	}

	tun, err := tuning.Load(tuningPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("tuning not found; using defaults", zap.String("path", tuningPath))
		tun, err = tuning.Defaults(), nil
	}
	if err != nil {
		return nil, tun, fmt.Errorf("load tuning: %w", err)
	}

	cat, err := catalogs.LoadFile(catalogPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("catalog not found; using built-in blocks", zap.String("path", catalogPath))
		cat, err = catalogs.Builtin(), nil
	}
	if err != nil {
		return nil, tun, fmt.Errorf("load catalog: %w", err)
	}
	return cat, tun, nil
}

type app struct {
	log    *zap.Logger
	cat    *catalogs.Catalog
	hangar *indexdb.SQLiteIndex
	ws     *ws.Server
}

func newApp(cat *catalogs.Catalog, tun tuning.Tuning, dataDir string, keepRevisions int, hangar *indexdb.SQLiteIndex, audit []build.AuditSink, log *zap.Logger) *app {
	cfg := ws.Config{
		Catalog:       cat,
		Tuning:        tun,
		Log:           log.Named("ws"),
		Audit:         audit,
		SaveDir:       filepath.Join(dataDir, "ships"),
		KeepRevisions: keepRevisions,
	}
	if hangar != nil {
		cfg.Hangar = hangar
	}
	return &app{log: log, cat: cat, hangar: hangar, ws: ws.NewServer(cfg)}
}

func runServe(ctx context.Context, o serveOptions, log *zap.Logger) error {
	cat, tun, err := o.load(log)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(o.DataDir, 0o755); err != nil {
		return err
	}

	hangar, err := openHangar(o.DataDir, o.DisableDB, log.Named("hangar"))
	if err != nil {
		return fmt.Errorf("open hangar index: %w", err)
	}
	if hangar != nil {
		defer hangar.Close()
	}

	auditLog := persistlog.NewAuditLogger(o.DataDir)
	defer auditLog.Close()
	audit := []build.AuditSink{auditLog}
	if hangar != nil {
		audit = append(audit, hangar)
	}

	a := newApp(cat, tun, o.DataDir, o.KeepRevisions, hangar, audit, log)
	srv := &http.Server{
		Addr:              o.Addr,
		Handler:           a.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", o.Addr),
			zap.String("catalog_digest", cat.Digest()), zap.Int("block_types", cat.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		// Sessions must be gone before the deferred hangar and audit closes.
		return a.ws.Shutdown(sctx)
	})
	err = g.Wait()
	log.Info("server stopped", zap.Error(err))
	return err
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Get("/metrics", a.metrics)
	r.Get("/v1/catalog", func(rw http.ResponseWriter, r *http.Request) {
		writeJSON(rw, http.StatusOK, ws.CatalogMessage(a.cat))
	})
	r.Get("/v1/ships", a.ships)
	r.Get("/v1/ships/{id}", a.ship)
	r.HandleFunc("/v1/ws", a.ws.Handler())

	if envBool("HC_ENABLE_PPROF_HTTP", false) {
		r.Mount("/debug", middleware.Profiler())
	}
	return r
}

func (a *app) metrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP hullcraft_sessions_active Connected builder sessions.\n")
	fmt.Fprintf(rw, "# TYPE hullcraft_sessions_active gauge\n")
	fmt.Fprintf(rw, "hullcraft_sessions_active %d\n", a.ws.ActiveSessions())

	fmt.Fprintf(rw, "# HELP hullcraft_catalog_block_types Registered block types.\n")
	fmt.Fprintf(rw, "# TYPE hullcraft_catalog_block_types gauge\n")
	fmt.Fprintf(rw, "hullcraft_catalog_block_types %d\n", a.cat.Len())

	if a.hangar == nil {
		return
	}
	st := a.hangar.Stats()
	fmt.Fprintf(rw, "# HELP hullcraft_hangar_queue_depth Pending hangar index writes.\n")
	fmt.Fprintf(rw, "# TYPE hullcraft_hangar_queue_depth gauge\n")
	fmt.Fprintf(rw, "hullcraft_hangar_queue_depth %d\n", st.QueueDepth)
	fmt.Fprintf(rw, "# HELP hullcraft_hangar_dropped_total Index writes dropped under backpressure.\n")
	fmt.Fprintf(rw, "# TYPE hullcraft_hangar_dropped_total counter\n")
	fmt.Fprintf(rw, "hullcraft_hangar_dropped_total{kind=%q} %d\n", "save", st.DropSaveTotal)
	fmt.Fprintf(rw, "hullcraft_hangar_dropped_total{kind=%q} %d\n", "audit", st.DropAuditTotal)
}

func (a *app) ships(rw http.ResponseWriter, r *http.Request) {
	if a.hangar == nil {
		http.Error(rw, "hangar index disabled", http.StatusServiceUnavailable)
		return
	}
	rows, err := a.hangar.List(r.Context())
	if err != nil {
		a.log.Warn("hangar list", zap.Error(err))
		http.Error(rw, "hangar unavailable", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []indexdb.ShipRow{}
	}
	writeJSON(rw, http.StatusOK, rows)
}

func (a *app) ship(rw http.ResponseWriter, r *http.Request) {
	if a.hangar == nil {
		http.Error(rw, "hangar index disabled", http.StatusServiceUnavailable)
		return
	}
	row, err := a.hangar.Lookup(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, indexdb.ErrNotFound):
		http.Error(rw, protocol.ErrNotFound, http.StatusNotFound)
		return
	case err != nil:
		a.log.Warn("hangar lookup", zap.Error(err))
		http.Error(rw, "hangar unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(rw, http.StatusOK, row)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

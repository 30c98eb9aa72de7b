package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"hullcraft.io/internal/persistence/snapshot"
	"hullcraft.io/internal/sim/build"
)

var ErrNotFound = errors.New("ship not found")

// SQLiteIndex is the hangar: a queryable index of saved ships and builder
// audits. Writes are queued to a single writer goroutine and batched into
// transactions; the snapshot files remain the source of truth.
type SQLiteIndex struct {
	db  *sql.DB
	log *zap.Logger

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// sendMu orders sends on ch against Close closing it.
	sendMu sync.RWMutex
	closed bool

	dropSave  atomic.Uint64
	dropAudit atomic.Uint64
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqAudit
	reqSync
)

type req struct {
	kind reqKind

	save  ShipRow
	audit build.AuditEntry
	done  chan struct{}
}

// ShipRow is one saved ship as listed by the hangar.
type ShipRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Digest      string    `json:"digest"`
	Blocks      int       `json:"blocks"`
	Connections int       `json:"connections"`
	Mass        float64   `json:"mass"`
	Thrust      float64   `json:"thrust"`
	Valid       bool      `json:"valid"`
	Frozen      bool      `json:"frozen"`
	SavedAt     time.Time `json:"saved_at"`
}

type QueueStats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropSaveTotal  uint64 `json:"drop_save_total"`
	DropAuditTotal uint64 `json:"drop_audit_total"`
}

func OpenSQLite(path string, log *zap.Logger) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection for the writer loop, one for hangar reads; WAL lets
	// them run side by side.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:  db,
		log: log,
		ch:  make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ships (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			blocks INTEGER NOT NULL,
			connections INTEGER NOT NULL,
			mass REAL NOT NULL,
			thrust REAL NOT NULL,
			valid INTEGER NOT NULL,
			frozen INTEGER NOT NULL,
			saved_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ships_saved_at ON ships(saved_at);`,
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			ship TEXT NOT NULL,
			op TEXT NOT NULL,
			block INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			reason TEXT,
			at INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_ship ON audits(ship, seq);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		close(s.ch)
		s.sendMu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() QueueStats {
	if s == nil {
		return QueueStats{}
	}
	return QueueStats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropSaveTotal:  s.dropSave.Load(),
		DropAuditTotal: s.dropAudit.Load(),
	}
}

// RecordSave queues a hangar row for a snapshot written to path.
func (s *SQLiteIndex) RecordSave(path string, snap snapshot.ShipV1) {
	if s == nil {
		return
	}
	r := ShipRow{
		ID:          snap.Header.ShipID,
		Name:        snap.Header.Name,
		Path:        path,
		Digest:      snap.Header.Digest,
		Blocks:      len(snap.Blocks),
		Connections: len(snap.Connections),
		Mass:        snap.Stats.Mass,
		Thrust:      snap.Stats.TotalThrust,
		Valid:       snap.Stats.Valid,
		Frozen:      snap.Frozen,
		SavedAt:     time.UnixMilli(snap.Header.SavedAt).UTC(),
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- req{kind: reqSave, save: r}:
	default:
		s.dropSave.Add(1)
	}
}

// WriteAudit makes the index a build.AuditSink. Entries are dropped when
// the writer falls behind.
func (s *SQLiteIndex) WriteAudit(e build.AuditEntry) error {
	if s == nil {
		return nil
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: e}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

// Sync blocks until everything queued before it is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.sendMu.RLock()
	if s.closed {
		s.sendMu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{kind: reqSync, done: done}:
		s.sendMu.RUnlock()
	case <-ctx.Done():
		s.sendMu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List returns saved ships, newest first.
func (s *SQLiteIndex) List(ctx context.Context) ([]ShipRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,path,digest,blocks,connections,mass,thrust,valid,frozen,saved_at
		FROM ships ORDER BY saved_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ShipRow
	for rows.Next() {
		r, err := scanShip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Lookup(ctx context.Context, id string) (ShipRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,path,digest,blocks,connections,mass,thrust,valid,frozen,saved_at
		FROM ships WHERE id = ?`, id)
	r, err := scanShip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShip(sc scanner) (ShipRow, error) {
	var (
		r       ShipRow
		valid   int
		frozen  int
		savedAt int64
	)
	if err := sc.Scan(&r.ID, &r.Name, &r.Path, &r.Digest, &r.Blocks, &r.Connections,
		&r.Mass, &r.Thrust, &valid, &frozen, &savedAt); err != nil {
		return r, err
	}
	r.Valid, r.Frozen = valid != 0, frozen != 0
	r.SavedAt = time.UnixMilli(savedAt).UTC()
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertShip, _ := s.db.Prepare(`INSERT OR REPLACE INTO ships(id,name,path,digest,blocks,connections,mass,thrust,valid,frozen,saved_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(ship,op,block,ok,reason,at,raw_json) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertShip != nil {
			_ = insertShip.Close()
		}
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			s.log.Warn("hangar index: begin", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.log.Warn("hangar index: commit", zap.Error(err))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func(err error) {
		s.log.Warn("hangar index: write failed", zap.Error(err))
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	tick := time.NewTicker(commitMaxWait)
	defer tick.Stop()

	for {
		var r req
		select {
		case <-tick.C:
			if time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		}
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSave:
			sv := r.save
			if insertShip != nil {
				if _, err := tx.Stmt(insertShip).Exec(
					sv.ID, sv.Name, sv.Path, sv.Digest,
					sv.Blocks, sv.Connections, sv.Mass, sv.Thrust,
					boolInt(sv.Valid), boolInt(sv.Frozen), sv.SavedAt.UnixMilli(),
				); err != nil {
					rollback(err)
					continue
				}
				opCount++
			}

		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			if insertAudit != nil {
				if _, err := tx.Stmt(insertAudit).Exec(
					a.Ship, string(a.Op), int64(a.Block), boolInt(a.OK), a.Reason,
					a.Time.UnixMilli(), string(raw),
				); err != nil {
					rollback(err)
					continue
				}
				opCount++
			}
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
}

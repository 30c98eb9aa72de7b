package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hullcraft.io/internal/persistence/indexdb"
	"hullcraft.io/internal/persistence/snapshot"
	"hullcraft.io/internal/physics"
	"hullcraft.io/internal/protocol"
	"hullcraft.io/internal/sim/build"
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/tuning"
)

// Hangar is the saved-ship index a server may be given.
type Hangar interface {
	RecordSave(path string, snap snapshot.ShipV1)
	Lookup(ctx context.Context, id string) (indexdb.ShipRow, error)
	List(ctx context.Context) ([]indexdb.ShipRow, error)
}

type Config struct {
	Catalog *catalogs.Catalog
	Tuning  tuning.Tuning
	Log     *zap.Logger
	Audit   []build.AuditSink

	// Hangar and SaveDir are optional; without them SAVE, LOAD and HANGAR
	// answer E_UNAVAILABLE.
	Hangar  Hangar
	SaveDir string
	// KeepRevisions > 0 archives the previous save of a ship before SAVE
	// overwrites it, keeping that many.
	KeepRevisions int

	NewEngine func() physics.Engine
}

// Server runs one builder session per websocket connection. Each session
// owns its ship and physics engine; sessions share nothing but the catalog.
type Server struct {
	cfg Config
	log *zap.Logger

	upgrader websocket.Upgrader

	nextSession atomic.Uint64
	active      atomic.Int64

	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	closing  bool
	handlers sync.WaitGroup
}

func NewServer(cfg Config) *Server {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalogs.Builtin()
	}
	if cfg.Tuning.GridSize <= 0 {
		cfg.Tuning = tuning.Defaults()
	}
	if cfg.NewEngine == nil {
		cfg.NewEngine = func() physics.Engine { return physics.NewWorld() }
	}
	return &Server{
		cfg: cfg,
		log: cfg.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) ActiveSessions() int { return int(s.active.Load()) }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if !s.track(conn) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
		defer s.untrack(conn)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := s.handshake(ctx, conn)
		if sess == nil {
			return
		}
		s.active.Add(1)
		defer s.active.Add(-1)
		defer sess.builder.Close()

		out := make(chan []byte, 16)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			res := s.dispatch(ctx, sess, msg)
			b, err := json.Marshal(res)
			if err != nil {
				sess.log.Error("marshal result", zap.Error(err))
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		sess.log.Info("session closed")
	}
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	if s.conns == nil {
		s.conns = map[*websocket.Conn]struct{}{}
	}
	s.conns[conn] = struct{}{}
	s.handlers.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.handlers.Done()
}

// Shutdown refuses new sessions, closes the open ones and waits until their
// handlers have returned, so nothing writes to the audit sinks or the
// hangar afterwards. http.Server.Shutdown does not wait for hijacked
// websocket connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	for conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type session struct {
	id      string
	builder *build.Builder
	log     *zap.Logger
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil
	}
	if err := protocol.ValidateHello(msg); err != nil {
		closeWith(conn, "bad HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil
	}

	id := fmt.Sprintf("S%d", s.nextSession.Add(1))
	log := s.log.With(zap.String("session", id), zap.String("client", hello.ClientName))
	b := build.New(build.Config{
		Catalog:  s.cfg.Catalog,
		Tuning:   s.cfg.Tuning,
		Engine:   s.cfg.NewEngine(),
		Log:      log,
		Audit:    s.cfg.Audit,
		ShipName: hello.ShipName,
	})
	sess := &session{id: id, builder: b, log: log}

	if hello.LoadShip != "" {
		if err := s.load(ctx, b, hello.LoadShip); err != nil {
			log.Warn("load on hello failed", zap.String("ship", hello.LoadShip), zap.Error(err))
			b.Close()
			closeWith(conn, "load failed")
			return nil
		}
	}

	tun := s.cfg.Tuning
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       id,
		ShipID:          b.ShipID().String(),
		GridSize:        tun.GridSize,
		Envelope:        protocol.Envelope{HalfWidth: tun.Envelope.HalfWidth, HalfHeight: tun.Envelope.HalfHeight},
		CatalogDigest:   s.cfg.Catalog.Digest(),
		BlockTypes:      s.cfg.Catalog.Len(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		b.Close()
		return nil
	}
	if err := writeJSON(conn, CatalogMessage(s.cfg.Catalog)); err != nil {
		b.Close()
		return nil
	}
	log.Info("session opened", zap.String("ship", welcome.ShipID))
	return sess
}

// CatalogMessage is the CATALOG frame sent after WELCOME.
func CatalogMessage(cat *catalogs.Catalog) protocol.CatalogMsg {
	msg := protocol.CatalogMsg{
		Type:            protocol.TypeCatalog,
		ProtocolVersion: protocol.Version,
		Digest:          cat.Digest(),
	}
	for _, id := range cat.IDs() {
		def, _ := cat.Get(id)
		msg.Blocks = append(msg.Blocks, protocol.CatalogEntry{ID: id, Def: def, Defaults: cat.DefaultProperties(id)})
	}
	return msg
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

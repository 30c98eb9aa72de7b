package snapshot

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/geom"
	"hullcraft.io/internal/sim/ship"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	ShipID  string `json:"ship_id"`
	Name    string `json:"name"`
	SavedAt int64  `json:"saved_at"`
	Digest  string `json:"digest"`
}

type ShipV1 struct {
	Header Header `json:"header"`

	CatalogDigest string  `json:"catalog_digest"`
	Frozen        bool    `json:"frozen,omitempty"`
	LastBlock     uint32  `json:"last_block"`
	Stats         StatsV1 `json:"stats"`

	Blocks      []BlockV1      `json:"blocks"`
	Connections []ConnectionV1 `json:"connections"`
}

type BlockV1 struct {
	ID       uint32              `json:"id"`
	TypeID   string              `json:"type_id"`
	Position geom.Vec2           `json:"position"`
	Rotation float64             `json:"rotation"`
	Health   float64             `json:"health"`
	Props    catalogs.Properties `json:"props"`
}

// ConnectionV1 is one undirected edge; (A, PointA) sorts first.
type ConnectionV1 struct {
	A      uint32 `json:"a"`
	PointA int    `json:"point_a"`
	B      uint32 `json:"b"`
	PointB int    `json:"point_b"`
}

// StatsV1 is a denormalized copy for listings; it is recomputed on load.
type StatsV1 struct {
	Mass        float64 `json:"mass"`
	TotalThrust float64 `json:"total_thrust"`
	Valid       bool    `json:"valid"`
}

// FromShip captures the ship's blocks and edge list in id order.
func FromShip(s *ship.Ship, catalogDigest string) ShipV1 {
	snap := ShipV1{
		Header: Header{
			Version: Version,
			ShipID:  s.ID.String(),
			Name:    s.Name,
			SavedAt: time.Now().UTC().UnixMilli(),
		},
		CatalogDigest: catalogDigest,
		Frozen:        s.Frozen(),
		LastBlock:     uint32(s.LastBlockID()),
		Blocks:        []BlockV1{},
		Connections:   []ConnectionV1{},
	}
	for _, b := range s.Blocks() {
		snap.Blocks = append(snap.Blocks, BlockV1{
			ID:       uint32(b.ID()),
			TypeID:   b.TypeID(),
			Position: b.GridPosition(),
			Rotation: b.Rotation(),
			Health:   b.Health(),
			Props:    b.Props,
		})
	}
	for _, c := range s.Connections() {
		snap.Connections = append(snap.Connections, ConnectionV1{
			A: uint32(c.A), PointA: c.PointA, B: uint32(c.B), PointB: c.PointB,
		})
	}
	st := s.CalculateStats()
	snap.Stats = StatsV1{
		Mass:        st.Mass,
		TotalThrust: st.TotalThrust,
		Valid:       s.ValidateStructuralIntegrity().Valid,
	}
	snap.Header.Digest = Digest(snap)
	return snap
}

// Digest fingerprints the layout: block types, poses and edges. Names,
// timestamps, health and stats do not contribute. FromShip emits blocks and
// edges sorted, so equal layouts hash equal.
func Digest(snap ShipV1) string {
	h := xxhash.New()
	var buf [8]byte
	putU := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	putF := func(v float64) { putU(math.Float64bits(v)) }

	for _, b := range snap.Blocks {
		putU(uint64(b.ID))
		_, _ = h.WriteString(b.TypeID)
		_, _ = h.Write([]byte{0})
		putF(b.Position.X)
		putF(b.Position.Y)
		putF(b.Rotation)
	}
	_, _ = h.Write([]byte{0xff})
	for _, c := range snap.Connections {
		putU(uint64(c.A))
		putU(uint64(c.PointA))
		putU(uint64(c.B))
		putU(uint64(c.PointB))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func Write(path string, snap ShipV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

func Read(path string) (ShipV1, error) {
	var snap ShipV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// The header is repeated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var hdr Header
	f, err := os.Open(path)
	if err != nil {
		return hdr, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return hdr, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, fmt.Errorf("decode header: %w", err)
	}
	return hdr, nil
}

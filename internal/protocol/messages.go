package protocol

import (
	"hullcraft.io/internal/sim/catalogs"
	"hullcraft.io/internal/sim/ship"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	ShipName        string `json:"ship_name,omitempty"`
	// LoadShip restores a saved ship into the new session.
	LoadShip string `json:"load_ship,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	ShipID          string   `json:"ship_id"`
	GridSize        float64  `json:"grid_size"`
	Envelope        Envelope `json:"envelope"`
	CatalogDigest   string   `json:"catalog_digest"`
	BlockTypes      int      `json:"block_types"`
}

type Envelope struct {
	HalfWidth  float64 `json:"half_width"`
	HalfHeight float64 `json:"half_height"`
}

// CATALOG (server -> client): every block type, sent once after WELCOME.
type CatalogMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Digest          string         `json:"digest"`
	Blocks          []CatalogEntry `json:"blocks"`
}

type CatalogEntry struct {
	ID       string              `json:"id"`
	Def      catalogs.BlockDef   `json:"def"`
	Defaults catalogs.Properties `json:"defaults"`
}

// RequestMsg is the shared shape of every builder request; each type reads
// only the fields it needs.
type RequestMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`

	TypeID   string      `json:"type_id,omitempty"`
	Pos      *[2]float64 `json:"pos,omitempty"`
	Rotation int         `json:"rotation,omitempty"`
	Snap     bool        `json:"snap,omitempty"`

	Block     uint32 `json:"block,omitempty"`
	Peer      uint32 `json:"peer,omitempty"`
	Point     int    `json:"point,omitempty"`
	PeerPoint int    `json:"peer_point,omitempty"`

	ShipID string `json:"ship_id,omitempty"`
}

// RESULT (server -> client), one per request.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id"`
	For             string `json:"for"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`

	Block       uint32      `json:"block,omitempty"`
	Pos         *[2]float64 `json:"pos,omitempty"`
	Connections int         `json:"connections,omitempty"`

	Stats  *ship.Stats           `json:"stats,omitempty"`
	Report *ship.IntegrityReport `json:"report,omitempty"`
	Blocks []BlockInfo           `json:"blocks,omitempty"`
	Ships  []ShipRef             `json:"ships,omitempty"`
	Digest string                `json:"digest,omitempty"`
}

type BlockInfo struct {
	ID       uint32     `json:"id"`
	TypeID   string     `json:"type_id"`
	Pos      [2]float64 `json:"pos"`
	Rotation float64    `json:"rotation"`
	Health   float64    `json:"health"`
	Links    []LinkInfo `json:"links,omitempty"`
}

type LinkInfo struct {
	Point     int    `json:"point"`
	Peer      uint32 `json:"peer"`
	PeerPoint int    `json:"peer_point"`
}

type ShipRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Digest  string `json:"digest"`
	Blocks  int    `json:"blocks"`
	Valid   bool   `json:"valid"`
	SavedAt int64  `json:"saved_at"`
}

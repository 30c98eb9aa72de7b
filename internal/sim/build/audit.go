package build

import (
	"time"

	"hullcraft.io/internal/sim/geom"
	"hullcraft.io/internal/sim/ship"
)

type Op string

const (
	OpPlace      Op = "PLACE"
	OpRemove     Op = "REMOVE"
	OpConnect    Op = "CONNECT"
	OpDisconnect Op = "DISCONNECT"
	OpTest       Op = "TEST"
	OpRestore    Op = "RESTORE"
)

// AuditEntry records one builder mutation, successful or not.
type AuditEntry struct {
	Time time.Time `json:"time"`
	Ship string    `json:"ship"`
	Op   Op        `json:"op"`

	TypeID   string       `json:"type_id,omitempty"`
	Pos      geom.Vec2    `json:"pos"`
	Rotation int          `json:"rotation,omitempty"`
	Block    ship.BlockID `json:"block,omitempty"`

	Peer      ship.BlockID `json:"peer,omitempty"`
	Point     int          `json:"point,omitempty"`
	PeerPoint int          `json:"peer_point,omitempty"`

	Connections int `json:"connections,omitempty"`

	// Digest is the layout digest of the snapshot a RESTORE loaded.
	Digest string `json:"digest,omitempty"`

	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

type AuditSink interface {
	WriteAudit(AuditEntry) error
}

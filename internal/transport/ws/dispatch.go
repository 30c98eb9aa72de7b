package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hullcraft.io/internal/persistence/archive"
	"hullcraft.io/internal/persistence/indexdb"
	"hullcraft.io/internal/persistence/snapshot"
	"hullcraft.io/internal/protocol"
	"hullcraft.io/internal/sim/build"
	"hullcraft.io/internal/sim/geom"
	"hullcraft.io/internal/sim/ship"
)

var errUnavailable = errors.New("hangar not configured")

// dispatch turns one raw frame into exactly one RESULT.
func (s *Server) dispatch(ctx context.Context, sess *session, raw []byte) protocol.ResultMsg {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return failure(protocol.ResultMsg{}, protocol.ErrProtoBadRequest, err)
	}
	res := protocol.ResultMsg{For: base.Type}
	if base.ProtocolVersion != protocol.Version {
		return failure(res, protocol.ErrProtoVersion, fmt.Errorf("want protocol_version %s", protocol.Version))
	}
	if !protocol.IsRequestType(base.Type) {
		return failure(res, protocol.ErrProtoBadRequest, fmt.Errorf("unknown message type %q", base.Type))
	}
	var req protocol.RequestMsg
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure(res, protocol.ErrProtoBadRequest, err)
	}
	res.ReqID = req.ReqID
	if err := protocol.ValidateRequest(raw); err != nil {
		return failure(res, protocol.ErrBadRequest, err)
	}

	out, err := s.handle(ctx, sess.builder, req, res)
	if err != nil {
		sess.log.Debug("request failed", zap.String("type", req.Type), zap.String("req_id", req.ReqID), zap.Error(err))
		return failure(out, codeFor(err), err)
	}
	out.Type, out.ProtocolVersion, out.OK = protocol.TypeResult, protocol.Version, true
	return out
}

func (s *Server) handle(ctx context.Context, b *build.Builder, req protocol.RequestMsg, res protocol.ResultMsg) (protocol.ResultMsg, error) {
	switch req.Type {
	case protocol.TypePlace:
		pos := vec(req.Pos)
		if req.Snap {
			def, ok := b.Catalog().Get(req.TypeID)
			if !ok {
				return res, fmt.Errorf("%w: %q", build.ErrUnknownType, req.TypeID)
			}
			pos = b.SnapToGridRotated(pos, &def, req.Rotation)
		}
		res.Pos = pair(pos)
		id, err := b.PlaceRotated(pos, req.TypeID, req.Rotation)
		if err != nil {
			return res, err
		}
		res.Block = uint32(id)
		err = b.View(func(sh *ship.Ship) error {
			blk, _ := sh.Block(id)
			res.Connections = len(blk.Links())
			return nil
		})
		st := b.Stats()
		res.Stats = &st
		return res, err

	case protocol.TypeRemove:
		if req.Pos != nil {
			id, err := b.RemoveAt(vec(req.Pos))
			res.Block = uint32(id)
			if err != nil {
				return res, err
			}
		} else if err := b.Remove(ship.BlockID(req.Block)); err != nil {
			return res, err
		} else {
			res.Block = req.Block
		}
		st := b.Stats()
		res.Stats = &st
		return res, nil

	case protocol.TypeConnect:
		if err := b.Connect(ship.BlockID(req.Block), ship.BlockID(req.Peer), req.Point, req.PeerPoint); err != nil {
			return res, err
		}
		res.Block = req.Block
		return res, nil

	case protocol.TypeDisconnect:
		if err := b.Disconnect(ship.BlockID(req.Block), ship.BlockID(req.Peer)); err != nil {
			return res, err
		}
		res.Block = req.Block
		return res, nil

	case protocol.TypeStats:
		st := b.Stats()
		res.Stats = &st
		return res, nil

	case protocol.TypeValidate:
		r := b.Validate()
		res.Report = &r
		return res, nil

	case protocol.TypeTest:
		r, _, err := b.Test()
		res.Report = &r
		return res, err

	case protocol.TypeSave:
		snap, err := s.save(b)
		res.Digest = snap.Header.Digest
		return res, err

	case protocol.TypeLoad:
		if err := s.load(ctx, b, req.ShipID); err != nil {
			return res, err
		}
		res.Blocks = blockInfos(b)
		return res, nil

	case protocol.TypeHangar:
		if s.cfg.Hangar == nil {
			return res, errUnavailable
		}
		rows, err := s.cfg.Hangar.List(ctx)
		if err != nil {
			return res, err
		}
		for _, r := range rows {
			res.Ships = append(res.Ships, protocol.ShipRef{
				ID: r.ID, Name: r.Name, Digest: r.Digest, Blocks: r.Blocks, Valid: r.Valid, SavedAt: r.SavedAt.UnixMilli(),
			})
		}
		return res, nil

	case protocol.TypeListBlocks:
		res.Blocks = blockInfos(b)
		return res, nil
	}
	return res, fmt.Errorf("unhandled request type %q", req.Type)
}

func (s *Server) savePath(id string) string {
	return filepath.Join(s.cfg.SaveDir, id+".ship.zst")
}

func (s *Server) save(b *build.Builder) (snapshot.ShipV1, error) {
	if s.cfg.SaveDir == "" {
		return snapshot.ShipV1{}, errUnavailable
	}
	snap := b.Snapshot()
	path := s.savePath(snap.Header.ShipID)
	if s.cfg.KeepRevisions > 0 {
		if _, _, err := archive.KeepRevision(s.cfg.SaveDir, path, s.cfg.KeepRevisions); err != nil {
			s.log.Warn("archive previous save", zap.String("ship", snap.Header.ShipID), zap.Error(err))
		}
	}
	if err := snapshot.Write(path, snap); err != nil {
		return snap, err
	}
	if s.cfg.Hangar != nil {
		s.cfg.Hangar.RecordSave(path, snap)
	}
	return snap, nil
}

func (s *Server) load(ctx context.Context, b *build.Builder, shipID string) error {
	id, err := uuid.Parse(shipID)
	if err != nil {
		return fmt.Errorf("%w: ship id %q", build.ErrBadSnapshot, shipID)
	}
	path, err := s.resolveSave(ctx, id.String())
	if err != nil {
		return err
	}
	snap, err := snapshot.Read(path)
	if err != nil {
		return err
	}
	return b.Restore(snap)
}

// resolveSave finds a ship's save file. The hangar row may still be queued
// right after a SAVE, so a miss falls back to the save directory.
func (s *Server) resolveSave(ctx context.Context, id string) (string, error) {
	if s.cfg.Hangar != nil {
		row, err := s.cfg.Hangar.Lookup(ctx, id)
		switch {
		case err == nil:
			return row.Path, nil
		case !errors.Is(err, indexdb.ErrNotFound) || s.cfg.SaveDir == "":
			return "", err
		}
	}
	if s.cfg.SaveDir == "" {
		return "", errUnavailable
	}
	path := s.savePath(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", indexdb.ErrNotFound, id)
		}
		return "", err
	}
	return path, nil
}

func blockInfos(b *build.Builder) []protocol.BlockInfo {
	var out []protocol.BlockInfo
	_ = b.View(func(sh *ship.Ship) error {
		for _, blk := range sh.Blocks() {
			info := protocol.BlockInfo{
				ID:       uint32(blk.ID()),
				TypeID:   blk.TypeID(),
				Pos:      *pair(blk.GridPosition()),
				Rotation: blk.Rotation(),
				Health:   blk.Health(),
			}
			for _, l := range blk.Links() {
				info.Links = append(info.Links, protocol.LinkInfo{Point: l.Point, Peer: uint32(l.Peer), PeerPoint: l.PeerPoint})
			}
			out = append(out, info)
		}
		return nil
	})
	return out
}

func vec(p *[2]float64) geom.Vec2 {
	if p == nil {
		return geom.Vec2{}
	}
	return geom.V(p[0], p[1])
}

func pair(v geom.Vec2) *[2]float64 { return &[2]float64{v.X, v.Y} }

func failure(res protocol.ResultMsg, code string, err error) protocol.ResultMsg {
	res.Type, res.ProtocolVersion = protocol.TypeResult, protocol.Version
	res.OK, res.Code, res.Message = false, code, err.Error()
	return res
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, ship.ErrFrozen):
		return protocol.ErrFrozen
	case errors.Is(err, build.ErrCannotPlace):
		return protocol.ErrCannotPlace
	case errors.Is(err, build.ErrShipCapacity):
		return protocol.ErrCapacity
	case errors.Is(err, build.ErrUnknownType):
		return protocol.ErrUnknownType
	case errors.Is(err, ship.ErrPointInUse):
		return protocol.ErrPointInUse
	case errors.Is(err, ship.ErrPointOutOfRange):
		return protocol.ErrPointOutOfRange
	case errors.Is(err, ship.ErrNotConnected):
		return protocol.ErrNotConnected
	case errors.Is(err, build.ErrInvalidShip):
		return protocol.ErrInvalidShip
	case errors.Is(err, build.ErrNoBlockAt),
		errors.Is(err, ship.ErrUnknownBlock),
		errors.Is(err, indexdb.ErrNotFound),
		errors.Is(err, os.ErrNotExist):
		return protocol.ErrNotFound
	case errors.Is(err, ship.ErrSelfConnect),
		errors.Is(err, build.ErrBadSnapshot):
		return protocol.ErrBadRequest
	case errors.Is(err, errUnavailable):
		return protocol.ErrUnavailable
	}
	return protocol.ErrInternal
}

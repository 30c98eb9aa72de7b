// Package ecs is the per-entity component container shared by blocks and
// ships. Capabilities are attached by component kind; there is no entity
// type hierarchy.
package ecs

import (
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
)

// Kind tags a component slot. The set is closed.
type Kind uint8

const (
	KindVisual Kind = iota + 1
	KindShape
	KindStructure
	KindConstraints
	KindComposite
	KindBody
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindVisual:
		return "visual"
	case KindShape:
		return "shape"
	case KindStructure:
		return "structure"
	case KindConstraints:
		return "constraints"
	case KindComposite:
		return "composite"
	case KindBody:
		return "body"
	case KindCompound:
		return "compound"
	}
	return "unknown"
}

type EntityID uint64

var nextEntity atomic.Uint64

// Releaser is implemented by components that own engine resources.
type Releaser interface {
	Release()
}

// Visual is the opaque renderer handle; the core only ever detaches it.
type Visual interface {
	Detach()
}

type Entity struct {
	id    EntityID
	label string
	comps map[Kind]any
	log   *zap.Logger
}

func NewEntity(label string, log *zap.Logger) *Entity {
	if log == nil {
		log = zap.NewNop()
	}
	return &Entity{
		id:    EntityID(nextEntity.Add(1)),
		label: label,
		comps: map[Kind]any{},
		log:   log,
	}
}

func (e *Entity) ID() EntityID  { return e.id }
func (e *Entity) Label() string { return e.label }
func (e *Entity) Len() int      { return len(e.comps) }

func (e *Entity) Has(k Kind) bool {
	_, ok := e.comps[k]
	return ok
}

// Kinds lists the attached component kinds in ascending order.
func (e *Entity) Kinds() []Kind {
	out := make([]Kind, 0, len(e.comps))
	for k := range e.comps {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e *Entity) Remove(k Kind) {
	delete(e.comps, k)
}

// Destroy releases every component in kind order and empties the entity.
func (e *Entity) Destroy() {
	for _, k := range e.Kinds() {
		switch v := e.comps[k].(type) {
		case Releaser:
			v.Release()
		case Visual:
			v.Detach()
		}
		delete(e.comps, k)
	}
}

func (e *Entity) add(k Kind, v any) bool {
	if _, exists := e.comps[k]; exists {
		e.log.Warn("component already present",
			zap.String("entity", e.label),
			zap.Uint64("entity_id", uint64(e.id)),
			zap.Stringer("kind", k))
		return false
	}
	e.comps[k] = v
	return true
}

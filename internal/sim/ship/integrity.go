package ship

import (
	"fmt"
	"sort"

	"hullcraft.io/internal/sim/catalogs"
)

const (
	IssueNoBlocks          = "no blocks"
	IssueMissingStructural = "missing structural block"
	IssueMissingPropulsion = "missing propulsion block"
)

type IntegrityReport struct {
	Valid     bool     `json:"valid"`
	Issues    []string `json:"issues"`
	Reachable int      `json:"reachable"`
	Total     int      `json:"total"`
}

// ValidateStructuralIntegrity never fails; problems are reported as issues.
func (s *Ship) ValidateStructuralIntegrity() IntegrityReport {
	r := IntegrityReport{Issues: []string{}, Total: len(s.blocks)}
	if len(s.blocks) == 0 {
		r.Issues = append(r.Issues, IssueNoBlocks)
		return r
	}

	root := s.blockIDs()[0]
	r.Reachable = len(s.ConnectedBlocks(root))
	if r.Reachable < r.Total {
		r.Issues = append(r.Issues, fmt.Sprintf("%d block(s) disconnected from the main structure", r.Total-r.Reachable))
	}

	var structural, propulsion bool
	for _, b := range s.blocks {
		switch b.def.Category {
		case catalogs.CategoryStructural:
			structural = true
		case catalogs.CategoryPropulsion:
			propulsion = true
		}
	}
	if !structural {
		r.Issues = append(r.Issues, IssueMissingStructural)
	}
	if !propulsion {
		r.Issues = append(r.Issues, IssueMissingPropulsion)
	}
	r.Valid = len(r.Issues) == 0
	return r
}

// ConnectedBlocks is a breadth-first walk over connections treated as
// undirected edges. The result includes start and is sorted; an unknown
// start yields nil.
func (s *Ship) ConnectedBlocks(start BlockID) []BlockID {
	if _, ok := s.blocks[start]; !ok {
		return nil
	}
	seen := map[BlockID]struct{}{start: {}}
	queue := []BlockID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ref := range s.blocks[cur].conns {
			if _, ok := seen[ref.Block]; ok {
				continue
			}
			if _, ok := s.blocks[ref.Block]; !ok {
				continue
			}
			seen[ref.Block] = struct{}{}
			queue = append(queue, ref.Block)
		}
	}
	out := make([]BlockID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

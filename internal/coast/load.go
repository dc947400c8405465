package coast

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/wegman-software/waterindex-go/internal/progress"
)

// RawBoundary is a coastline or data polygon record as read from the input,
// before node coordinates are known. Areas do not repeat the first node.
type RawBoundary struct {
	ID     int64
	IsArea bool
	Nodes  []int64
}

// NodeResolver maps node ids to coordinates. Ids it does not know are left
// out of the result.
type NodeResolver interface {
	Resolve(ids []int64) (map[int64]orb.Point, error)
}

// LoadRawBoundaries resolves the nodes of all records with one lookup and
// builds coasts with the given side states. Records with unresolved nodes
// are reported and skipped; an error is returned only if the lookup fails.
func LoadRawBoundaries(reporter progress.Reporter, raw []RawBoundary, resolver NodeResolver, left, right State) ([]*Coast, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, r := range raw {
		for _, id := range r.Nodes {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	coords, err := resolver.Resolve(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %d coastline nodes: %w", len(ids), err)
	}

	coasts := make([]*Coast, 0, len(raw))
	for _, r := range raw {
		if len(r.Nodes) == 0 {
			continue
		}

		c := &Coast{
			ID:           r.ID,
			IsArea:       r.IsArea,
			SortCriteria: float64(r.ID),
			FrontNodeID:  r.Nodes[0],
			BackNodeID:   r.Nodes[len(r.Nodes)-1],
			Points:       make([]Point, len(r.Nodes)),
			Left:         left,
			Right:        right,
		}

		resolved := true
		for n, id := range r.Nodes {
			coord, ok := coords[id]
			if !ok {
				reporter.Error(fmt.Sprintf("Cannot resolve node with id %d for coastline %d", id, r.ID))
				resolved = false
				break
			}
			c.Points[n] = Point{ID: id, Coord: coord}
		}

		if resolved {
			coasts = append(coasts, c)
		}
	}

	return coasts, nil
}

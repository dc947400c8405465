package coast

import (
	"fmt"

	"github.com/wegman-software/waterindex-go/internal/progress"
)

// MergeCoastlines joins open ways whose back node is the front node of
// another way until nothing more can be joined. Ways that end up closed
// become areas. Too short results are dropped with a warning.
func MergeCoastlines(reporter progress.Reporter, coastlines []*Coast) []*Coast {
	reporter.SetAction("Merging coastlines")

	var merged, ways []*Coast
	var wayCount, areaCount int
	startMap := make(map[int64]*Coast)
	blacklist := make(map[int64]bool)

	for _, c := range coastlines {
		if c.IsArea {
			areaCount++
			merged = append(merged, c)
			continue
		}
		if _, ok := startMap[c.FrontNodeID]; !ok {
			startMap[c.FrontNodeID] = c
		}
		ways = append(ways, c)
	}

	for changed := true; changed; {
		changed = false

		for _, c := range ways {
			if blacklist[c.ID] {
				continue
			}

			other, ok := startMap[c.BackNodeID]
			if !ok || blacklist[other.ID] || other.ID == c.ID {
				continue
			}

			c.Points = append(c.Points, other.Points[1:]...)
			c.BackNodeID = c.Points[len(c.Points)-1].ID

			other.Points = nil
			blacklist[other.ID] = true
			delete(startMap, other.FrontNodeID)

			changed = true
		}
	}

	for _, c := range ways {
		if blacklist[c.ID] {
			continue
		}

		if c.FrontNodeID == c.BackNodeID && len(c.Points) > 0 {
			c.IsArea = true
			c.Points = c.Points[:len(c.Points)-1]
			areaCount++
		} else {
			wayCount++
		}

		if (c.IsArea && len(c.Points) <= 2) || len(c.Points) < 2 {
			reporter.Warning(fmt.Sprintf("Dropping to short coastline with id %d", c.ID))
			continue
		}

		merged = append(merged, c)
	}

	reporter.Info(fmt.Sprintf("%d way coastline(s), %d area coastline(s)", wayCount, areaCount))

	return merged
}

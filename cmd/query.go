package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/wegman-software/waterindex-go/internal/config"
	"github.com/wegman-software/waterindex-go/internal/waterindex"
)

var (
	queryLevel         int
	queryMagnification int
	queryBBox          string
)

var queryCmd = &cobra.Command{
	Use:   "query <water.idx> [lon lat]",
	Short: "Look up land and water state in an index",
	Long: `Look up a point or list the regions of a bounding box.

With lon and lat the cell holding the point is read and the point is
classified against its ground tiles. With --bbox all cells of the level
drawn at --magnification that intersect the box are listed.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 && len(args) != 3 {
			return fmt.Errorf("want an index file, optionally followed by lon and lat")
		}
		return nil
	},
	Run: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntVar(&queryLevel, "level", -1, "Index level of a point lookup (derived from --magnification when negative)")
	queryCmd.Flags().IntVarP(&queryMagnification, "magnification", "m", 0, "Map magnification level")
	queryCmd.Flags().StringVarP(&queryBBox, "bbox", "b", "", "List the regions of minlon,minlat,maxlon,maxlat")
}

func runQuery(cmd *cobra.Command, args []string) {
	idx, err := waterindex.Open(args[0])
	if err != nil {
		exitWithError("failed to open index", err)
	}
	defer idx.Close()

	switch {
	case len(args) == 3:
		p, err := parsePoint(args[1], args[2])
		if err != nil {
			exitWithError("invalid point", err)
		}
		level := queryLevel
		if level < 0 {
			level = idx.LevelFor(queryMagnification)
		}
		if err := queryPoint(idx, p, level); err != nil {
			exitWithError("lookup failed", err)
		}
	case queryBBox != "":
		bbox, err := config.ParseBBox(queryBBox)
		if err != nil {
			exitWithError("invalid bbox", err)
		}
		if err := queryRegions(idx, bbox.Bound(), queryMagnification); err != nil {
			exitWithError("region query failed", err)
		}
	default:
		exitWithError("nothing to query", fmt.Errorf("give lon and lat or --bbox"))
	}
}

func parsePoint(lonStr, latStr string) (orb.Point, error) {
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude %q", lonStr)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("point %g,%g out of range", lon, lat)
	}
	return orb.Point{lon, lat}, nil
}

func queryPoint(idx *waterindex.Index, p orb.Point, level int) error {
	r, err := idx.Lookup(p, level)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "level\t%d\n", r.Level)
	fmt.Fprintf(w, "cell\t%d,%d\n", r.Cell.X, r.Cell.Y)
	fmt.Fprintf(w, "bounds\t%g,%g,%g,%g\n", r.Bound.Min.Lon(), r.Bound.Min.Lat(), r.Bound.Max.Lon(), r.Bound.Max.Lat())
	fmt.Fprintf(w, "cell state\t%s\n", r.State)
	fmt.Fprintf(w, "tiles\t%d\n", len(r.Tiles))
	fmt.Fprintf(w, "state\t%s\n", r.StateAt(p))
	return w.Flush()
}

func queryRegions(idx *waterindex.Index, box orb.Bound, magnification int) error {
	regions, err := idx.GetRegions(box, magnification)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tX\tY\tSTATE\tTILES")
	for _, r := range regions {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%d\n", r.Level, r.Cell.X, r.Cell.Y, r.State, len(r.Tiles))
	}
	return w.Flush()
}

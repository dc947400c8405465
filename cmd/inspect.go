package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/wegman-software/waterindex-go/internal/progress"
	"github.com/wegman-software/waterindex-go/internal/statemap"
	"github.com/wegman-software/waterindex-go/internal/waterindex"
)

var inspectCells bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <water.idx>",
	Short: "Show the level headers of an index",
	Long: `Show the header of every level of a water index. With --cells every
cell is read and counted per state.`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectCells, "cells", false, "Count cells and tiles per state")
}

type levelCounts struct {
	cells [4]int
	tiles int
}

func countLevel(idx *waterindex.Index, e *waterindex.LevelEntry) (levelCounts, error) {
	var c levelCounts
	if !e.HasCellData {
		c.cells[e.DefaultCellData] = int(e.XCount()) * int(e.YCount())
		return c, nil
	}
	for y := e.YStart; y <= e.YEnd; y++ {
		for x := e.XStart; x <= e.XEnd; x++ {
			r, err := idx.Cell(e.Level, x, y)
			if err != nil {
				return c, err
			}
			c.cells[r.State]++
			c.tiles += len(r.Tiles)
		}
	}
	return c, nil
}

func runInspect(cmd *cobra.Command, args []string) {
	idx, err := waterindex.Open(args[0])
	if err != nil {
		exitWithError("failed to open index", err)
	}
	defer idx.Close()

	info, err := os.Stat(args[0])
	if err != nil {
		exitWithError("failed to stat index", err)
	}
	fmt.Printf("%s: levels %d..%d, %s\n", args[0], idx.MinLevel, idx.MaxLevel, progress.FormatBytes(info.Size()))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "LEVEL\tCELL DATA\tDEFAULT\tOFFSET BYTES\tX\tY"
	if inspectCells {
		header += "\tLAND\tWATER\tCOAST\tUNKNOWN\tTILES"
	}
	fmt.Fprintln(w, header)

	for i := range idx.Levels {
		e := &idx.Levels[i]
		fmt.Fprintf(w, "%d\t%t\t%s\t%d\t%d..%d\t%d..%d",
			e.Level, e.HasCellData, e.DefaultCellData, e.DataOffsetBytes,
			e.XStart, e.XEnd, e.YStart, e.YEnd)
		if inspectCells {
			c, err := countLevel(idx, e)
			if err != nil {
				exitWithError("failed to read level", err)
			}
			fmt.Fprintf(w, "\t%d\t%d\t%d\t%d\t%d",
				c.cells[statemap.Land], c.cells[statemap.Water], c.cells[statemap.Coast], c.cells[statemap.Unknown], c.tiles)
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		exitWithError("failed to write output", err)
	}
}

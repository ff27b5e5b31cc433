package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type InspectParams struct {
	File          string  `pos:"true" required:"true" help:"Analysis result JSON file."`
	BPM           float64 `optional:"true" help:"Override BPM fallback." default:"120"`
	TimeSignature int     `optional:"true" help:"Override time signature fallback." default:"4"`
	Cells         int     `short:"n" optional:"true" help:"Number of leading cells to print. 0 prints all." default:"32"`
}

// InspectCmd builds a grid from a cached analysis file and prints it,
// mainly for eyeballing padding/shift decisions without the front-end.
func InspectCmd() *cobra.Command {
	return boa.CmdT[InspectParams]{
		Use:   "inspect",
		Short: "Print the chord grid for an analysis JSON file",
		RunFunc: func(params *InspectParams, cmd *cobra.Command, args []string) {
			if err := runInspect(params); err != nil {
				fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runInspect(params *InspectParams) error {
	data, err := os.ReadFile(params.File)
	if err != nil {
		return err
	}
	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("parse %s: %w", params.File, err)
	}

	grid := BuildChordGrid(&result, GridConfig{
		BPM:           params.BPM,
		TimeSignature: params.TimeSignature,
	})

	fmt.Printf("cells: %d  padding: %d  shift: %d  real: %d\n",
		len(grid.Chords), grid.PaddingCount, grid.ShiftCount,
		len(grid.OriginalAudioMapping))

	audioIndexByVisual := lo.SliceToMap(grid.OriginalAudioMapping, func(m AudioMapping) (int, int) {
		return m.VisualIndex, m.AudioIndex
	})

	limit := params.Cells
	if limit <= 0 || limit > len(grid.Chords) {
		limit = len(grid.Chords)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Class", "Chord", "Beat", "Audio #"})
	for i := 0; i < limit; i++ {
		class := "real"
		switch {
		case i < grid.ShiftCount:
			class = "shift"
		case i < grid.TotalPaddingCount:
			class = "padding"
		}
		beat := "-"
		if grid.Beats[i] != nil {
			beat = fmt.Sprintf("%.3f", *grid.Beats[i])
		}
		audioIdx := "-"
		if ai, ok := audioIndexByVisual[i]; ok {
			audioIdx = fmt.Sprintf("%d", ai)
		}
		t.AppendRow(table.Row{i, class, grid.Chords[i], beat, audioIdx})
	}
	t.Render()

	if limit < len(grid.Chords) {
		fmt.Printf("... %d more cells\n", len(grid.Chords)-limit)
	}
	return nil
}

package main

import (
	"math"
	"sort"
)

// Beat statistics used by the service layer to enrich analysis results
// whose metadata fields came back empty. The grid engine itself never
// calls these: it applies plain GridConfig defaults so it stays a pure
// function of its inputs.

// EstimateBPM derives tempo from the median inter-beat interval,
// octave-folded into the 60-180 range. Returns 0 when there are not
// enough plausible intervals to say anything.
func EstimateBPM(beats []float64) float64 {
	if len(beats) < 2 {
		return 0
	}

	intervals := make([]float64, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		iv := beats[i] - beats[i-1]
		// 0.2s..2s covers 30-300 BPM; anything outside is a detector glitch.
		if iv > 0.2 && iv < 2.0 {
			intervals = append(intervals, iv)
		}
	}
	if len(intervals) == 0 {
		return 0
	}

	bpm := 60.0 / medianFloat64(intervals)
	for bpm < 60 {
		bpm *= 2
	}
	for bpm > 180 {
		bpm /= 2
	}
	return math.Round(bpm*100) / 100
}

// InferTimeSignature counts beats per measure between consecutive
// downbeats and returns the modal count. Falls back to 4 when the
// downbeat list is too short or the mode lands outside 2..12.
func InferTimeSignature(beats, downbeats []float64) int {
	if len(downbeats) < 2 || len(beats) == 0 {
		return 4
	}

	counts := map[int]int{}
	for i := 1; i < len(downbeats); i++ {
		n := countBeatsIn(beats, downbeats[i-1], downbeats[i])
		if n > 0 {
			counts[n]++
		}
	}

	mode, best := 0, 0
	for n, c := range counts {
		if c > best || (c == best && n < mode) {
			mode, best = n, c
		}
	}
	if mode < 2 || mode > 12 {
		return 4
	}
	return mode
}

// countBeatsIn counts beats in the half-open window [from, to).
func countBeatsIn(beats []float64, from, to float64) int {
	lo := sort.SearchFloat64s(beats, from)
	hi := sort.SearchFloat64s(beats, to)
	return hi - lo
}

func medianFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// EnrichAnalysis fills missing beat-model metadata in place using the
// detected beats themselves. Used by the analyze path before caching so
// grids built later never have to guess.
func EnrichAnalysis(result *AnalysisResult) {
	if result == nil {
		return
	}
	beats := NormalizeBeats(result.Beats)
	if result.BeatDetectionResult.BPM <= 0 {
		result.BeatDetectionResult.BPM = EstimateBPM(beats)
	}
	if result.BeatDetectionResult.TimeSignature < 2 {
		result.BeatDetectionResult.TimeSignature = InferTimeSignature(beats, result.Downbeats)
	}
	if result.BeatDetectionResult.BeatTimeRangeStart == 0 && len(beats) > 0 {
		result.BeatDetectionResult.BeatTimeRangeStart = beats[0]
	}
}

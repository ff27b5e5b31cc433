package main

import "math"

// Cell labels for the two classes of synthetic leading cells.
// NoChord also appears on real beats that precede the first detected
// chord change: those beats exist but nothing harmonic sounds yet.
const (
	NoChord   = "N.C."
	ShiftCell = ""
)

// GridConfig supplies fallbacks for metadata the upstream models may
// omit. It is passed explicitly rather than read from globals so the
// engine stays a pure function of its arguments.
type GridConfig struct {
	BPM           float64
	TimeSignature int
}

// DefaultGridConfig returns the musically neutral defaults: 4/4 at 120.
func DefaultGridConfig() GridConfig {
	return GridConfig{BPM: 120, TimeSignature: 4}
}

// resolve replaces unusable fields with the neutral defaults. A time
// signature outside 2..16 is treated as absent.
func (c GridConfig) resolve() GridConfig {
	d := DefaultGridConfig()
	if c.BPM <= 0 || math.IsNaN(c.BPM) || math.IsInf(c.BPM, 0) {
		c.BPM = d.BPM
	}
	if c.TimeSignature < 2 || c.TimeSignature > 16 {
		c.TimeSignature = d.TimeSignature
	}
	return c
}

// PaddingShift is the leading-cell budget for one grid: PaddingCount
// "N.C." cells for pre-roll silence, ShiftCount empty cells rotating the
// beat-of-measure phase, and their sum.
type PaddingShift struct {
	PaddingCount      int `json:"paddingCount"`
	ShiftCount        int `json:"shiftCount"`
	TotalPaddingCount int `json:"totalPaddingCount"`
}

// BuildChordGrid merges independently produced beat timestamps and
// chord-change annotations into a single ordered visual grid.
//
// The stages run in sequence: beat normalization, dense chord
// expansion, padding/shift calculation, then assembly. The function is
// pure: identical inputs always produce structurally identical output,
// and it never fails on malformed-but-typed input. A nil result (or one
// without a single usable beat) yields the documented empty grid so
// callers never see nil slices where arrays are expected.
func BuildChordGrid(result *AnalysisResult, cfg GridConfig) ChordGridData {
	if result == nil {
		return emptyGrid()
	}

	beats := NormalizeBeats(result.Beats)
	if len(beats) == 0 {
		return emptyGrid()
	}

	cfg = cfg.resolve()
	bpm := result.BeatDetectionResult.BPM
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		bpm = cfg.BPM
	}
	timeSignature := result.BeatDetectionResult.TimeSignature
	if timeSignature < 2 || timeSignature > 16 {
		timeSignature = cfg.TimeSignature
	}

	dense := expandChords(result.Chords, beats)
	if len(result.Chords) == 0 && len(result.SynchronizedChords) > 0 {
		dense = denseFromSynchronized(result.SynchronizedChords, len(beats))
	}

	ps := ComputePaddingAndShift(beats[0], bpm, timeSignature, dense)
	if manual := result.BeatDetectionResult.BeatShift; manual > 0 {
		// Manual front-end correction wins over the heuristic search.
		ps.ShiftCount = manual % timeSignature
		ps.TotalPaddingCount = ps.PaddingCount + ps.ShiftCount
	}

	beatDuration := 60.0 / bpm
	n := len(beats)
	chords := make([]string, 0, ps.TotalPaddingCount+n)
	cells := make([]*float64, 0, ps.TotalPaddingCount+n)

	for i := 0; i < ps.ShiftCount; i++ {
		chords = append(chords, ShiftCell)
		cells = append(cells, nil)
	}

	// Padding cells get synthetic timestamps spaced one beat apart,
	// counting back from the first real beat. The padding count never
	// exceeds the leading whole-beat budget, so these stay >= 0; the
	// clamp only absorbs float rounding.
	for i := 0; i < ps.PaddingCount; i++ {
		t := beats[0] - beatDuration*float64(ps.PaddingCount-i)
		if t < 0 {
			t = 0
		}
		tc := t
		chords = append(chords, NoChord)
		cells = append(cells, &tc)
	}

	mapping := make([]AudioMapping, 0, n)
	for i := 0; i < n; i++ {
		tc := beats[i]
		chords = append(chords, dense[i])
		cells = append(cells, &tc)
		mapping = append(mapping, AudioMapping{
			Chord:       dense[i],
			Timestamp:   beats[i],
			VisualIndex: ps.TotalPaddingCount + i,
			AudioIndex:  i,
		})
	}

	return ChordGridData{
		Chords:               chords,
		Beats:                cells,
		HasPadding:           ps.PaddingCount > 0,
		PaddingCount:         ps.PaddingCount,
		ShiftCount:           ps.ShiftCount,
		TotalPaddingCount:    ps.TotalPaddingCount,
		OriginalAudioMapping: mapping,
	}
}

// ComputePaddingAndShift decides how many synthetic cells precede the
// first real beat. Padding covers the remainder-of-bar silence before
// the first detected beat; whole leading measures are discarded rather
// than rendered since they add no musical information. The shift from
// ComputeOptimalShift is added on top of (not split out of) the padding
// budget.
func ComputePaddingAndShift(firstBeatTime, bpm float64, timeSignature int, chords []string) PaddingShift {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		bpm = DefaultGridConfig().BPM
	}
	if timeSignature < 2 || timeSignature > 16 {
		timeSignature = DefaultGridConfig().TimeSignature
	}

	padding := 0
	if firstBeatTime > 0 && !math.IsNaN(firstBeatTime) && !math.IsInf(firstBeatTime, 0) {
		beatDuration := 60.0 / bpm
		leadingBeats := int(math.Floor(firstBeatTime / beatDuration))
		padding = leadingBeats % timeSignature
	}

	shift := ComputeOptimalShift(chords, timeSignature, padding)

	return PaddingShift{
		PaddingCount:      padding,
		ShiftCount:        shift,
		TotalPaddingCount: padding + shift,
	}
}

// ComputeOptimalShift picks the phase offset in [0, timeSignature) under
// which chord changes most often land on a downbeat. This is a "looks
// musically correct" heuristic, not a music-theoretic guarantee: a hit
// is a cell whose chord differs from its predecessor, is a real label
// (repeats and N.C. don't count), and whose position in the measure
// after applying the candidate shift is the downbeat slot. Ties prefer
// the smallest shift so identical inputs always give identical output.
func ComputeOptimalShift(chords []string, timeSignature, paddingCount int) int {
	if timeSignature < 2 || timeSignature > 16 {
		timeSignature = DefaultGridConfig().TimeSignature
	}
	if len(chords) <= 1 {
		return 0
	}
	if paddingCount < 0 {
		paddingCount = 0
	}

	bestShift := 0
	bestHits := -1
	for s := 0; s < timeSignature; s++ {
		hits := 0
		for i := 1; i < len(chords); i++ {
			if chords[i] == chords[i-1] || !isRealChord(chords[i]) {
				continue
			}
			// paddingCount cells are already consumed before the first
			// chord slot, so they count toward the measure position.
			if (i+paddingCount+s)%timeSignature == 0 {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestShift = s
		}
	}
	return bestShift
}

func isRealChord(label string) bool {
	return label != ShiftCell && label != NoChord
}

// expandChords turns the sparse change list into one label per beat:
// the active chord at a beat is the most recent change at or before its
// timestamp. Beats before the first change carry N.C. A two-pointer
// merge keeps this O(beats + changes); both inputs are assumed
// time-ordered, which the upstream services guarantee.
func expandChords(changes []ChordChange, beats []float64) []string {
	dense := make([]string, len(beats))
	j := -1
	for i, bt := range beats {
		for j+1 < len(changes) && changes[j+1].Time <= bt {
			j++
		}
		if j >= 0 && changes[j].Chord != "" {
			dense[i] = changes[j].Chord
		} else {
			dense[i] = NoChord
		}
	}
	return dense
}

// denseFromSynchronized rebuilds a dense label array from the advisory
// upstream alignment. Only exercised when the sparse change list is
// absent; slots the alignment does not cover stay N.C.
func denseFromSynchronized(sync []SynchronizedChord, numBeats int) []string {
	dense := make([]string, numBeats)
	for i := range dense {
		dense[i] = NoChord
	}
	for _, sc := range sync {
		if sc.BeatIndex < 0 || sc.BeatIndex >= numBeats || sc.Chord == "" {
			continue
		}
		dense[sc.BeatIndex] = sc.Chord
	}
	// Fill forward: a chord keeps sounding until the next change.
	last := NoChord
	for i := range dense {
		if dense[i] == NoChord && isRealChord(last) {
			dense[i] = last
		} else {
			last = dense[i]
		}
	}
	return dense
}

// emptyGrid is the documented degenerate output for nil or beat-less
// input: well-typed, zero counts, no nil slices.
func emptyGrid() ChordGridData {
	return ChordGridData{
		Chords:               []string{},
		Beats:                []*float64{},
		HasPadding:           true,
		OriginalAudioMapping: []AudioMapping{},
	}
}

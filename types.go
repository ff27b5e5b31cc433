package main

// AnalysisResult matches the JSON emitted by the beat-detection and
// chord-recognition services. It is produced once per (audio, beat model,
// chord model) tuple and never mutated afterwards; everything the grid
// engine returns is derived from it on demand.
type AnalysisResult struct {
	// Chords is a sparse change list: one entry per detected chord
	// CHANGE, not one per beat.
	Chords []ChordChange `json:"chords"`
	// Beats carries one element per detected beat, in either of the two
	// legacy wire shapes (bare timestamp or {time, beatNum} object).
	Beats                 []BeatValue `json:"beats"`
	Downbeats             []float64   `json:"downbeats,omitempty"`
	DownbeatsWithMeasures []float64   `json:"downbeats_with_measures,omitempty"`
	// SynchronizedChords is an advisory precomputed alignment. The grid
	// engine regenerates the alignment itself and only falls back to
	// this when the sparse change list is missing.
	SynchronizedChords  []SynchronizedChord `json:"synchronizedChords,omitempty"`
	BeatDetectionResult BeatDetectionResult `json:"beatDetectionResult"`
	AudioDuration       float64             `json:"audioDuration,omitempty"`
}

// ChordChange marks the moment a new chord starts sounding. Labels may
// carry inversion syntax (e.g. "C/E").
type ChordChange struct {
	Chord string  `json:"chord"`
	Time  float64 `json:"time"`
}

// SynchronizedChord is one beat slot of the advisory upstream alignment.
type SynchronizedChord struct {
	Chord     string `json:"chord"`
	BeatIndex int    `json:"beatIndex"`
	BeatNum   int    `json:"beatNum,omitempty"`
}

// BeatDetectionResult holds beat-model metadata. All fields are optional
// on the wire; missing values fall back to GridConfig defaults.
type BeatDetectionResult struct {
	TimeSignature int     `json:"time_signature,omitempty"`
	BPM           float64 `json:"bpm,omitempty"`
	// BeatShift, when positive, is a manual phase correction persisted by
	// the front-end. It bypasses the optimal-shift search.
	BeatShift          int     `json:"beatShift,omitempty"`
	BeatTimeRangeStart float64 `json:"beat_time_range_start,omitempty"`
}

// ChordGridData is the engine's sole output contract: two parallel
// equal-length cell sequences plus the bookkeeping that maps a visual
// cell back to real audio time.
//
// Leading cells come in two classes. Shift cells ("" label, null beat)
// only rotate the beat-of-measure phase. Padding cells ("N.C." label,
// synthetic timestamp) represent real silence before the first detected
// beat. TotalPaddingCount is always PaddingCount + ShiftCount.
type ChordGridData struct {
	Chords               []string       `json:"chords"`
	Beats                []*float64     `json:"beats"`
	HasPadding           bool           `json:"hasPadding"`
	PaddingCount         int            `json:"paddingCount"`
	ShiftCount           int            `json:"shiftCount"`
	TotalPaddingCount    int            `json:"totalPaddingCount"`
	OriginalAudioMapping []AudioMapping `json:"originalAudioMapping,omitempty"`
}

// AudioMapping links one real (non-synthetic) cell's position in the
// padded visual grid back to its position in the original unpadded
// arrays. It is the only path by which a click on a visual cell can be
// resolved to a playback timestamp.
type AudioMapping struct {
	Chord       string  `json:"chord"`
	Timestamp   float64 `json:"timestamp"`
	VisualIndex int     `json:"visualIndex"`
	AudioIndex  int     `json:"audioIndex"`
}

// --- API Request/Response types ---

type GridBatchRequest struct {
	Results []AnalysisResult `json:"results"`
}

type GridBatchResponse struct {
	Grids []ChordGridData `json:"grids"`
}

type ShiftRequest struct {
	Chords        []string `json:"chords"`
	TimeSignature int      `json:"time_signature"`
	PaddingCount  int      `json:"padding_count"`
}

type ShiftResponse struct {
	Shift int `json:"shift"`
}

type AnalyzeRequest struct {
	Filepaths []string `json:"filepaths"`
}

type AnalyzeResponse struct {
	Results []AnalysisResult `json:"results"`
	Errors  []string         `json:"errors,omitempty"`
}

package main

import (
	"math"
	"testing"
)

func regularBeats(interval float64, n int) []float64 {
	beats := make([]float64, n)
	for i := range beats {
		beats[i] = interval * float64(i)
	}
	return beats
}

func TestEstimateBPM_Regular(t *testing.T) {
	if got := EstimateBPM(regularBeats(0.5, 64)); math.Abs(got-120) > 0.01 {
		t.Errorf("0.5s spacing: expected 120, got %f", got)
	}
	if got := EstimateBPM(regularBeats(0.75, 64)); math.Abs(got-80) > 0.01 {
		t.Errorf("0.75s spacing: expected 80, got %f", got)
	}
}

func TestEstimateBPM_OctaveFolding(t *testing.T) {
	// 0.25s spacing is 240 BPM; folds down into the 60-180 range.
	if got := EstimateBPM(regularBeats(0.25, 64)); math.Abs(got-120) > 0.01 {
		t.Errorf("expected folded 120, got %f", got)
	}
}

func TestEstimateBPM_TooFewBeats(t *testing.T) {
	if got := EstimateBPM([]float64{1.0}); got != 0 {
		t.Errorf("expected 0 for a single beat, got %f", got)
	}
	if got := EstimateBPM(nil); got != 0 {
		t.Errorf("expected 0 for no beats, got %f", got)
	}
}

func TestEstimateBPM_IgnoresGlitches(t *testing.T) {
	beats := regularBeats(0.5, 32)
	beats = append(beats, beats[len(beats)-1]+30) // detector dropout gap
	if got := EstimateBPM(beats); math.Abs(got-120) > 0.01 {
		t.Errorf("glitch interval should not move the median: got %f", got)
	}
}

func TestInferTimeSignature_Waltz(t *testing.T) {
	beats := regularBeats(0.5, 60)
	var downbeats []float64
	for i := 0; i < len(beats); i += 3 {
		downbeats = append(downbeats, beats[i])
	}
	if got := InferTimeSignature(beats, downbeats); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestInferTimeSignature_Fallback(t *testing.T) {
	beats := regularBeats(0.5, 16)
	if got := InferTimeSignature(beats, nil); got != 4 {
		t.Errorf("no downbeats: expected fallback 4, got %d", got)
	}
	if got := InferTimeSignature(beats, []float64{0}); got != 4 {
		t.Errorf("single downbeat: expected fallback 4, got %d", got)
	}
}

func TestEnrichAnalysis_FillsMissingMetadata(t *testing.T) {
	beats := make([]BeatValue, 32)
	for i := range beats {
		beats[i] = BeatTime(0.5 + 0.5*float64(i))
	}
	result := &AnalysisResult{
		Beats:     beats,
		Downbeats: []float64{0.5, 2.5, 4.5, 6.5, 8.5},
	}

	EnrichAnalysis(result)

	if math.Abs(result.BeatDetectionResult.BPM-120) > 0.01 {
		t.Errorf("expected BPM 120, got %f", result.BeatDetectionResult.BPM)
	}
	if result.BeatDetectionResult.TimeSignature != 4 {
		t.Errorf("expected 4/4, got %d", result.BeatDetectionResult.TimeSignature)
	}
	if math.Abs(result.BeatDetectionResult.BeatTimeRangeStart-0.5) > 1e-9 {
		t.Errorf("expected beat range start 0.5, got %f", result.BeatDetectionResult.BeatTimeRangeStart)
	}
}

func TestEnrichAnalysis_KeepsExistingMetadata(t *testing.T) {
	result := &AnalysisResult{
		Beats: []BeatValue{BeatTime(0.5), BeatTime(1.0)},
		BeatDetectionResult: BeatDetectionResult{
			BPM: 96, TimeSignature: 3,
		},
	}
	EnrichAnalysis(result)
	if result.BeatDetectionResult.BPM != 96 || result.BeatDetectionResult.TimeSignature != 3 {
		t.Error("existing metadata should not be overwritten")
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleGrid_NullBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/grid", strings.NewReader("null"))
	rec := httptest.NewRecorder()

	handleGrid(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var grid ChordGridData
	if err := json.Unmarshal(rec.Body.Bytes(), &grid); err != nil {
		t.Fatal(err)
	}
	if len(grid.Chords) != 0 || !grid.HasPadding {
		t.Errorf("null analysis should yield the empty grid, got %+v", grid)
	}
}

func TestHandleGrid_RoundTrip(t *testing.T) {
	body, err := json.Marshal(eightBeatResult())
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/grid", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handleGrid(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var grid ChordGridData
	if err := json.Unmarshal(rec.Body.Bytes(), &grid); err != nil {
		t.Fatal(err)
	}
	if len(grid.Chords) != len(grid.Beats) {
		t.Error("length invariant broken over the wire")
	}
	if len(grid.OriginalAudioMapping) != 8 {
		t.Errorf("expected 8 mapping entries, got %d", len(grid.OriginalAudioMapping))
	}
	// Shift cells must arrive as JSON nulls, not zeros.
	if grid.ShiftCount > 0 && grid.Beats[0] != nil {
		t.Error("shift cell survived serialization as non-null")
	}
}

func TestHandleGrid_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/grid", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handleGrid(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestHandleShift(t *testing.T) {
	body := `{"chords":["C","C","C","C","Am","Am","Am","Am","F","F","F","F"],"time_signature":4,"padding_count":1}`
	req := httptest.NewRequest(http.MethodPost, "/shift", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handleShift(rec, req)

	var resp ShiftResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Shift != 3 {
		t.Errorf("expected shift 3, got %d", resp.Shift)
	}
}

func TestHandleGridBatch(t *testing.T) {
	reqBody := GridBatchRequest{
		Results: []AnalysisResult{*eightBeatResult(), *eightBeatResult(), {}},
	}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/grid/batch", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handleGridBatch(rec, req)

	var resp GridBatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Grids) != 3 {
		t.Fatalf("expected 3 grids, got %d", len(resp.Grids))
	}
	if !gridsEqualJSON(resp.Grids[0], resp.Grids[1]) {
		t.Error("identical inputs produced different grids")
	}
	if len(resp.Grids[2].Chords) != 0 {
		t.Error("empty analysis should produce the empty grid")
	}
}

// gridsEqualJSON compares two grids after a JSON round trip,
// where pointer identity is gone and only structure matters.
func gridsEqualJSON(a, b ChordGridData) bool {
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return bytes.Equal(ja, jb)
}

func TestPreferences_RoundTrip(t *testing.T) {
	orig := prefsFilePath
	prefsFilePath = filepath.Join(t.TempDir(), "grid_preferences.json")
	defer func() { prefsFilePath = orig }()

	// No file yet: defaults.
	prefs := loadPreferences()
	if prefs.DefaultBPM != 120 || prefs.DefaultTimeSignature != 4 {
		t.Errorf("unexpected defaults: %+v", prefs)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/preferences",
		strings.NewReader(`{"default_bpm": 90, "default_time_signature": 3}`))
	handleSavePreferences(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("save failed: %d %s", rec.Code, rec.Body.String())
	}

	cfg := gridConfigFromPreferences()
	if cfg.BPM != 90 || cfg.TimeSignature != 3 {
		t.Errorf("saved preferences not applied: %+v", cfg)
	}
}

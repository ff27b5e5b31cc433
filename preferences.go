package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// prefsFilePath is set to an absolute path by serve after dirs are
// configured.
var prefsFilePath = "grid_preferences.json"

// GridPreferences holds the user's fallback grid settings, applied when
// an analysis result comes back without usable metadata.
type GridPreferences struct {
	DefaultBPM           float64 `json:"default_bpm"`
	DefaultTimeSignature int     `json:"default_time_signature"`
}

// DefaultPreferences returns factory defaults matching the engine's
// neutral GridConfig.
func DefaultPreferences() GridPreferences {
	return GridPreferences{
		DefaultBPM:           120,
		DefaultTimeSignature: 4,
	}
}

// loadPreferences reads preferences from disk, falling back to defaults.
func loadPreferences() GridPreferences {
	data, err := os.ReadFile(prefsFilePath)
	if err != nil {
		return DefaultPreferences()
	}
	var prefs GridPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		log.Printf("[preferences] parse error, using defaults: %v", err)
		return DefaultPreferences()
	}
	return prefs
}

// savePreferences persists preferences to disk.
func savePreferences(prefs GridPreferences) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(prefsFilePath)
	if dir != "." {
		os.MkdirAll(dir, 0755)
	}
	return os.WriteFile(prefsFilePath, data, 0644)
}

// gridConfigFromPreferences maps stored preferences onto the engine's
// explicit config struct. Unusable values resolve to neutral defaults
// inside the engine.
func gridConfigFromPreferences() GridConfig {
	prefs := loadPreferences()
	return GridConfig{
		BPM:           prefs.DefaultBPM,
		TimeSignature: prefs.DefaultTimeSignature,
	}
}

// handleGetPreferences returns current preferences (file or defaults).
func handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs := loadPreferences()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prefs)
}

// handleSavePreferences saves user preferences to disk.
func handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs GridPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if err := savePreferences(prefs); err != nil {
		http.Error(w, "save failed: "+err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "saved"})
}

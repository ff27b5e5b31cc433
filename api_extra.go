package main

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// handleUpload accepts multipart audio uploads and saves them to
// uploadsDir. Returns JSON: {"files": [{"path": "...", "filename": "..."}]}
func handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(512 << 20); err != nil { // 512 MB max
		http.Error(w, "parse form: "+err.Error(), 400)
		return
	}

	type fileResult struct {
		Path     string `json:"path"`
		Filename string `json:"filename"`
	}
	var results []fileResult

	for _, fhs := range r.MultipartForm.File {
		for _, fh := range fhs {
			src, err := fh.Open()
			if err != nil {
				continue
			}
			defer src.Close()

			// Sanitize filename; a short uuid prefix avoids clobbering
			// an earlier upload with the same name.
			name := filepath.Base(fh.Filename)
			name = strings.ReplaceAll(name, "..", "_")
			name = uuid.NewString()[:8] + "_" + name
			dst := filepath.Join(uploadsDir, name)

			out, err := os.Create(dst)
			if err != nil {
				continue
			}
			io.Copy(out, src)
			out.Close()

			absPath, _ := filepath.Abs(dst)
			results = append(results, fileResult{Path: absPath, Filename: name})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"files": results})
}

// ExportZipRequest names a cached analysis to package, by audio path.
type ExportZipRequest struct {
	AudioPath string `json:"audio_path"`
	TrackName string `json:"track_name,omitempty"` // Base name for the zip and contents
}

// handleExportZip bundles a track's analysis JSON and its freshly built
// grid JSON into a ZIP and streams it as the response.
func handleExportZip(w http.ResponseWriter, r *http.Request) {
	var req ExportZipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AudioPath == "" {
		http.Error(w, "audio_path required", http.StatusBadRequest)
		return
	}

	absCache, _ := filepath.Abs(cacheDir)
	result, err := FetchAnalysis(req.AudioPath, absCache)
	if err != nil {
		http.Error(w, "analysis unavailable: "+err.Error(), http.StatusNotFound)
		return
	}
	grid := BuildChordGrid(result, gridConfigFromPreferences())

	baseName := req.TrackName
	if baseName == "" {
		baseName = strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	}
	safeName := filepath.Base(baseName)
	if ext := filepath.Ext(safeName); ext != "" {
		safeName = safeName[:len(safeName)-len(ext)]
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+safeName+`.zip"`)

	zw := zip.NewWriter(w)
	defer zw.Close()

	if err := addJSONToZip(zw, safeName+"_analysis.json", result); err != nil {
		log.Printf("Failed to zip analysis: %v", err)
		return
	}
	if err := addJSONToZip(zw, safeName+"_grid.json", grid); err != nil {
		log.Printf("Failed to zip grid: %v", err)
		return
	}
}

func addJSONToZip(zw *zip.Writer, zipFilePath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	writer, err := zw.Create(zipFilePath)
	if err != nil {
		return err
	}
	_, err = writer.Write(data)
	return err
}

// handleCacheClear deletes contents of uploads and output directories
// plus stale analysis JSON in the cache root.
func handleCacheClear(w http.ResponseWriter, r *http.Request) {
	clearDir(uploadsDir)
	clearDir(outputDir)
	clearPatternMatch(cacheDir, "*_analysis.json")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func clearDir(dirPath string) {
	d, err := os.Open(dirPath)
	if err != nil {
		return
	}
	defer d.Close()
	names, err := d.Readdirnames(-1)
	if err != nil {
		return
	}
	for _, name := range names {
		os.RemoveAll(filepath.Join(dirPath, name))
	}
}

func clearPatternMatch(dirPath, pattern string) {
	files, _ := filepath.Glob(filepath.Join(dirPath, pattern))
	for _, f := range files {
		os.Remove(f)
	}
}

// isChildPath reports whether child is rooted inside parent.
// Uses filepath.Rel so it is correct on case-sensitive (Linux) filesystems.
func isChildPath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return !strings.HasPrefix(rel, "..")
}

// handleServeFile serves a local file as a binary stream for download.
func handleServeFile(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path is required", 400)
		return
	}

	// Security: only allow paths inside cwd or the data directory.
	absPath, _ := filepath.Abs(path)
	cwd, _ := filepath.Abs(".")
	absData, _ := filepath.Abs(filepath.Dir(cacheDir))
	if !isChildPath(cwd, absPath) && !isChildPath(absData, absPath) {
		http.Error(w, "forbidden path", 403)
		return
	}

	f, err := os.Open(absPath)
	if err != nil {
		http.Error(w, "file not found: "+err.Error(), 404)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "stat error", 500)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(absPath)))
	http.ServeContent(w, r, filepath.Base(absPath), info.ModTime(), f)
}

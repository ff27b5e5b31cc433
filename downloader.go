package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var ytdlpPath = "yt-dlp"

func initYtdlp() {
	if p := os.Getenv("YTDLP_PATH"); p != "" {
		ytdlpPath = p
		return
	}
	if path, err := exec.LookPath("yt-dlp"); err == nil {
		ytdlpPath = path
		return
	}
	for _, c := range []string{filepath.Join(binDir, "yt-dlp"), filepath.Join(binDir, "yt-dlp.exe")} {
		if _, err := os.Stat(c); err == nil {
			abs, _ := filepath.Abs(c)
			ytdlpPath = abs
			return
		}
	}
	log.Println("[yt-dlp] not found in PATH")
}

type DownloadRequest struct {
	URL       string `json:"url"`
	OutputDir string `json:"output_dir,omitempty"`
}

type DownloadResponse struct {
	File  *DownloadedFile `json:"file,omitempty"`
	Error string          `json:"error,omitempty"`
}

type DownloadedFile struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

// ExtractYouTubeAudio downloads one video's audio track via yt-dlp.
//
// yt-dlp on non-UTF8 Windows locales prints paths in the ANSI codepage,
// which Go then misreads as UTF-8. Forcing PYTHONUTF8 on the subprocess
// keeps titles with non-ASCII characters intact; filepath.Base plus a
// re-join with the known outputDir recovers a correct absolute path.
func ExtractYouTubeAudio(url, outputDir string) (*DownloadedFile, error) {
	if outputDir == "" {
		outputDir = uploadsDir
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	outputTemplate := filepath.Join(outputDir, "%(title)s.%(ext)s")

	args := []string{
		url,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--output", outputTemplate,
		"--no-playlist",
		"--no-warnings",
		"--no-part",
		"--no-mtime",
		"--no-cache-dir",
		"--geo-bypass",
		"--add-metadata",
		"--print", "after_move:filepath",
	}

	log.Printf("[yt-dlp] Extracting audio: %s", url)

	cmd := exec.Command(ytdlpPath, args...)
	hideWindow(cmd)
	cmd.Env = append(os.Environ(), "PYTHONUTF8=1", "PYTHONIOENCODING=utf-8")

	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("yt-dlp failed: %w\n%s", err, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" {
			continue
		}
		name := filepath.Base(line) // Native Unicode basename
		absPath := filepath.Join(outputDir, name)
		if _, statErr := os.Stat(absPath); statErr != nil {
			log.Printf("[yt-dlp] file not found: %s (raw line: %q)", name, line)
			continue
		}
		title := strings.TrimSuffix(name, filepath.Ext(name))
		title = strings.ReplaceAll(title, "_", " ")
		log.Printf("[yt-dlp] Ready: %s", name)
		return &DownloadedFile{
			Path:     absPath,
			Filename: name,
			Title:    title,
		}, nil
	}

	return nil, fmt.Errorf("yt-dlp produced no output file")
}

// handleDownloadYouTube handles POST /download/youtube
func handleDownloadYouTube(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", 400)
		return
	}

	absUploads, _ := filepath.Abs(uploadsDir)
	if req.OutputDir != "" {
		absUploads, _ = filepath.Abs(req.OutputDir)
	}
	file, err := ExtractYouTubeAudio(req.URL, absUploads)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		json.NewEncoder(w).Encode(DownloadResponse{Error: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(DownloadResponse{File: file})
}

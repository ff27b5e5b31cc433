package main

import (
	"bytes"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// upstreamURL points at the ML sidecar (beat-detection + chord
// recognition). Set from CLI params before the server starts.
var upstreamURL = "http://127.0.0.1:5001"

var analysisClient = &http.Client{Timeout: 10 * time.Minute}

// fileHash fingerprints an audio file cheaply: size plus the first and
// last 1MB. Matches the key scheme the front-end uses for its own cache.
func fileHash(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	size := info.Size()
	chunkSize := int64(1024 * 1024)

	h := md5.New()
	h.Write([]byte(fmt.Sprintf("%d", size)))

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, chunkSize)
	n, _ := f.Read(head)
	h.Write(head[:n])

	if size > chunkSize {
		f.Seek(-chunkSize, io.SeekEnd)
		tail := make([]byte, chunkSize)
		n, _ = f.Read(tail)
		h.Write(tail[:n])
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func loadCachedAnalysis(cachePath string) (*AnalysisResult, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	var ar AnalysisResult
	if err := json.Unmarshal(data, &ar); err != nil {
		return nil, err
	}
	return &ar, nil
}

func saveCachedAnalysis(cachePath string, ar *AnalysisResult) error {
	data, err := json.MarshalIndent(ar, "", "  ")
	if err != nil {
		return err
	}
	os.MkdirAll(filepath.Dir(cachePath), 0755)
	return os.WriteFile(cachePath, data, 0644)
}

// FetchAnalysis returns the analysis result for one audio file,
// preferring the on-disk cache. A miss asks the upstream ML sidecar to
// run both models, then enriches and caches the result. Analysis is
// immutable per (file, models), so a cache hit never revalidates.
func FetchAnalysis(path, cacheDir string) (*AnalysisResult, error) {
	hash, err := fileHash(path)
	if err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}

	cachePath := filepath.Join(cacheDir, hash+"_analysis.json")
	if cached, err := loadCachedAnalysis(cachePath); err == nil {
		log.Printf("[cache hit] %s", path)
		return cached, nil
	}

	log.Printf("[analyzing] %s", path)

	absPath, _ := filepath.Abs(path)
	body, err := json.Marshal(map[string]string{"filepath": absPath})
	if err != nil {
		return nil, err
	}

	resp, err := analysisClient.Post(upstreamURL+"/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upstream: status %d: %s", resp.StatusCode, string(msg))
	}

	var ar AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("upstream: decode: %w", err)
	}

	EnrichAnalysis(&ar)

	saveCachedAnalysis(cachePath, &ar)
	log.Printf("[done] %s (%.0f BPM, %d beats, ts=%d)", path,
		ar.BeatDetectionResult.BPM, len(ar.Beats), ar.BeatDetectionResult.TimeSignature)
	return &ar, nil
}

// FetchAnalysisBatch analyzes multiple files in parallel, concurrency
// capped so a big playlist doesn't stampede the upstream sidecar.
func FetchAnalysisBatch(paths []string, cacheDir string) ([]AnalysisResult, []string) {
	results := make([]AnalysisResult, len(paths))
	errors := make([]string, len(paths))
	var wg sync.WaitGroup

	sem := make(chan struct{}, 4)

	for i, p := range paths {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ar, err := FetchAnalysis(path, cacheDir)
			if err != nil {
				errors[idx] = fmt.Sprintf("%s: %v", path, err)
				return
			}
			results[idx] = *ar
		}(i, p)
	}
	wg.Wait()

	var errs []string
	for _, e := range errors {
		if e != "" {
			errs = append(errs, e)
		}
	}
	return results, errs
}

// BuildGridBatch builds grids for many analysis results. Each build is
// independent and pure so the fan-out needs no coordination beyond the
// semaphore.
func BuildGridBatch(results []AnalysisResult, cfg GridConfig) []ChordGridData {
	grids := make([]ChordGridData, len(results))
	var wg sync.WaitGroup

	sem := make(chan struct{}, 4)

	for i := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			grids[idx] = BuildChordGrid(&results[idx], cfg)
		}(i)
	}
	wg.Wait()
	return grids
}

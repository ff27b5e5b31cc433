package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

var cacheDir = "cache"
var uploadsDir = "cache/uploads"
var outputDir = "output"
var binDir = "bin" // managed directory for self-downloaded binaries (e.g. yt-dlp)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "chordmini-backend",
		Short:   "Chord grid backend for ChordMini",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			ServeCmd(),
			InspectCmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown-(no build info)"
	}
	if bi.Main.Version == "" {
		return "unknown-(no version)"
	}
	return bi.Main.Version
}

type ServeParams struct {
	Port     int    `short:"p" optional:"true" help:"Port to listen on. 0 picks a random free port." default:"0"`
	DataDir  string `optional:"true" help:"Root directory for cache and output." default:"."`
	Upstream string `optional:"true" help:"Base URL of the beat/chord ML sidecar." default:"http://127.0.0.1:5001"`
	Ytdlp    string `optional:"true" help:"Path to yt-dlp executable."`
}

func ServeCmd() *cobra.Command {
	return boa.CmdT[ServeParams]{
		Use:   "serve",
		Short: "Run the grid HTTP service",
		RunFunc: func(params *ServeParams, cmd *cobra.Command, args []string) {
			runServe(params)
		},
	}.ToCobra()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func runServe(params *ServeParams) {
	if params.Ytdlp != "" {
		os.Setenv("YTDLP_PATH", params.Ytdlp)
	}
	upstreamURL = params.Upstream

	if params.DataDir != "." {
		absData, _ := filepath.Abs(params.DataDir)
		cacheDir = filepath.Join(absData, "cache")
		uploadsDir = filepath.Join(cacheDir, "uploads")
		outputDir = filepath.Join(absData, "output")
		binDir = filepath.Join(absData, "bin")
		prefsFilePath = filepath.Join(absData, "grid_preferences.json")
	}

	initYtdlp()

	os.MkdirAll(cacheDir, 0755)
	os.MkdirAll(uploadsDir, 0755)
	os.MkdirAll(outputDir, 0755)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /grid", handleGrid)
	mux.HandleFunc("POST /grid/batch", handleGridBatch)
	mux.HandleFunc("POST /shift", handleShift)
	mux.HandleFunc("POST /analyze", handleAnalyze)
	mux.HandleFunc("POST /upload", handleUpload)
	mux.HandleFunc("POST /download/youtube", handleDownloadYouTube)
	mux.HandleFunc("GET /preferences", handleGetPreferences)
	mux.HandleFunc("POST /preferences", handleSavePreferences)
	mux.HandleFunc("POST /export/zip", handleExportZip)
	mux.HandleFunc("POST /cache/clear", handleCacheClear)
	mux.HandleFunc("GET /files/serve", handleServeFile)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", params.Port))
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	// Print port for the Next.js dev proxy / desktop shell to read.
	fmt.Printf("PORT:%d\n", port)
	log.Printf("Grid backend listening on :%d (upstream: %s)", port, upstreamURL)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down...")
		os.Exit(0)
	}()

	if err := http.Serve(listener, corsMiddleware(mux)); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// handleGrid builds one grid from a posted analysis result. A JSON null
// body is legal and yields the documented empty grid.
func handleGrid(w http.ResponseWriter, r *http.Request) {
	var result *AnalysisResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	grid := BuildChordGrid(result, gridConfigFromPreferences())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(grid)
}

func handleGridBatch(w http.ResponseWriter, r *http.Request) {
	var req GridBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	grids := BuildGridBatch(req.Results, gridConfigFromPreferences())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GridBatchResponse{Grids: grids})
}

// handleShift exposes the phase search on its own, for the front-end's
// manual re-alignment control.
func handleShift(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	shift := ComputeOptimalShift(req.Chords, req.TimeSignature, req.PaddingCount)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ShiftResponse{Shift: shift})
}

func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	absCache, _ := filepath.Abs(cacheDir)
	results, errs := FetchAnalysisBatch(req.Filepaths, absCache)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AnalyzeResponse{
		Results: results,
		Errors:  errs,
	})
}

// Package api exposes the voice library and speech generation over HTTP.
//
// All routes live under /api. Voice mutations are multipart form based
// because every one of them carries a WAV recording; generation and settings
// are plain JSON. Generated artifacts are served back from the output
// directory under /api/outputs/{name}, and /api/recordings/live offers a
// websocket that scores a recording while it is still being captured.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrWong99/voxmimic/internal/generate"
	"github.com/MrWong99/voxmimic/internal/observe"
	"github.com/MrWong99/voxmimic/internal/recording"
	"github.com/MrWong99/voxmimic/internal/registry"
	"github.com/MrWong99/voxmimic/internal/voice"
)

// Server holds the handler dependencies for the HTTP API.
type Server struct {
	voices  *voice.Service
	coord   *generate.Coordinator
	outDir  string
	metrics *observe.Metrics
}

// NewServer returns a Server over the given services. outDir is the artifact
// directory the generate endpoints serve results from. A nil metrics falls
// back to [observe.DefaultMetrics].
func NewServer(voices *voice.Service, coord *generate.Coordinator, outDir string, metrics *observe.Metrics) *Server {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{voices: voices, coord: coord, outDir: outDir, metrics: metrics}
}

// Register adds all API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/voices", s.handleListVoices)
	mux.HandleFunc("POST /api/voices", s.handleCreateVoice)
	mux.HandleFunc("GET /api/voices/{id}", s.handleGetVoice)
	mux.HandleFunc("PUT /api/voices/{id}", s.handleUpdateVoice)
	mux.HandleFunc("DELETE /api/voices/{id}", s.handleDeleteVoice)
	mux.HandleFunc("GET /api/voices/{id}/audio", s.handleVoiceAudio)
	mux.HandleFunc("GET /api/voices/{id}/script", s.handleVoiceScript)

	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/generate/guest", s.handleGenerateGuest)
	mux.HandleFunc("GET /api/outputs/{name}", s.handleArtifact)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	mux.HandleFunc("POST /api/recordings/validate", s.handleValidateRecording)
	mux.HandleFunc("GET /api/recordings/live", s.handleLiveRecording)
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("api: encode response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps domain errors onto HTTP statuses and the user-facing
// sentences shown in the UI. Anything unmapped is a 500 with the detail kept
// in the server log.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var quality *recording.QualityError
	var synth *generate.SynthesisError

	switch {
	case errors.As(err, &quality):
		writeError(w, http.StatusBadRequest, quality.Message)
	case errors.Is(err, voice.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "Please enter a voice name.")
	case errors.Is(err, voice.ErrScriptRequired):
		writeError(w, http.StatusBadRequest, "Please enter a reference script.")
	case errors.Is(err, voice.ErrGuestReserved):
		writeError(w, http.StatusBadRequest, "The guest voice cannot be changed.")
	case errors.Is(err, generate.ErrNoReference):
		writeError(w, http.StatusBadRequest, "Please record your voice reading the script first.")
	case errors.Is(err, generate.ErrNoText):
		writeError(w, http.StatusBadRequest, "Please enter some text to generate speech.")
	case errors.Is(err, registry.ErrAudioNotFound):
		writeError(w, http.StatusNotFound, "Voice data not found. Please recreate the voice.")
	case errors.Is(err, voice.ErrNotFound):
		writeError(w, http.StatusNotFound, "Voice not found.")
	case errors.As(err, &synth):
		writeError(w, http.StatusBadGateway, "Speech generation failed: "+synth.Err.Error())
	default:
		observe.Logger(r.Context()).Error("api: request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please check the server logs.")
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/MrWong99/voxmimic/internal/voice"
)

type generateRequest struct {
	VoiceID string `json:"voice_id"`
	Text    string `json:"text"`
}

type generateResponse struct {
	ArtifactURL string `json:"artifact_url"`
}

// handleGenerate synthesizes speech in a saved voice. The guest id is
// rejected here; a guest generation carries its own recording and goes
// through the multipart route.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	path, err := s.coord.GenerateFromVoice(r.Context(), voice.ParseRef(req.VoiceID), req.Text)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{ArtifactURL: artifactURL(path)})
}

// handleGenerateGuest synthesizes speech in an ad-hoc cloned voice. The
// multipart form carries the reference recording ("audio"), the target text
// ("text") and optionally the script that was read aloud ("script").
func (s *Server) handleGenerateGuest(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.formClip(w, r)
	if !ok {
		return
	}

	path, err := s.coord.GenerateGuest(r.Context(), clip, r.FormValue("text"), r.FormValue("script"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{ArtifactURL: artifactURL(path)})
}

// handleArtifact serves a generated WAV from the output directory. Names are
// restricted to plain ".wav" basenames so the route cannot read outside the
// directory.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name != filepath.Base(name) || !strings.HasSuffix(name, ".wav") {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.outDir, name))
}

func artifactURL(path string) string {
	return "/api/outputs/" + filepath.Base(path)
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/MrWong99/voxmimic/internal/observe"
)

// settingsJSON is the wire form of the resolved generation settings.
type settingsJSON struct {
	DefaultScript string `json:"default_script"`
	Model         string `json:"model"`
	Language      string `json:"language"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st := s.voices.Settings()
	writeJSON(w, http.StatusOK, settingsJSON{
		DefaultScript: st.DefaultScript,
		Model:         st.Model,
		Language:      st.Language,
	})
}

// settingsUpdate is a partial settings change; absent fields stay untouched.
// An explicitly blank model or language clears the stored selection so reads
// fall back to the configured default.
type settingsUpdate struct {
	DefaultScript *string `json:"default_script"`
	Model         *string `json:"model"`
	Language      *string `json:"language"`
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DefaultScript != nil {
		if err := s.voices.SetDefaultScript(*req.DefaultScript); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if req.Model != nil {
		if err := s.voices.SetModel(*req.Model); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if req.Language != nil {
		if err := s.voices.SetLanguage(*req.Language); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	st := s.voices.Settings()
	observe.Logger(r.Context()).Info("api: settings updated",
		"model", st.Model, "language", st.Language)
	writeJSON(w, http.StatusOK, settingsJSON{
		DefaultScript: st.DefaultScript,
		Model:         st.Model,
		Language:      st.Language,
	})
}

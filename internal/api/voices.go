package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrWong99/voxmimic/internal/observe"
	"github.com/MrWong99/voxmimic/internal/registry"
	"github.com/MrWong99/voxmimic/internal/voice"
	"github.com/MrWong99/voxmimic/pkg/audio"
)

// maxAudioBytes caps uploaded recordings. 64 MiB covers several minutes of
// 48 kHz stereo 16-bit PCM.
const maxAudioBytes = 64 << 20

var errUploadTooLarge = errors.New("audio upload too large")

// voiceJSON is the wire form of a saved voice.
type voiceJSON struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
	ReferenceScript string    `json:"reference_script"`
}

func voiceToJSON(v registry.Voice) voiceJSON {
	return voiceJSON{
		ID:              v.ID,
		Name:            v.Name,
		CreatedAt:       v.CreatedAt,
		ReferenceScript: v.ReferenceScript,
	}
}

// choiceJSON is one entry of the voice picker.
type choiceJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type listVoicesResponse struct {
	Choices []choiceJSON `json:"choices"`
}

// clipFromForm extracts the "audio" multipart file as a normalized mono
// clip. A missing file yields an empty clip so the quality gate can report
// the absence with its own message.
func clipFromForm(r *http.Request) (audio.Clip, error) {
	f, _, err := r.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return audio.Clip{}, nil
		}
		return audio.Clip{}, fmt.Errorf("read form: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxAudioBytes+1))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) > maxAudioBytes {
		return audio.Clip{}, errUploadTooLarge
	}
	return audio.DecodeWAV(data)
}

// formClip wraps clipFromForm and writes the error response itself. The
// second return value reports whether the handler may proceed.
func (s *Server) formClip(w http.ResponseWriter, r *http.Request) (audio.Clip, bool) {
	clip, err := clipFromForm(r)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "The recording is too large.")
		} else {
			writeError(w, http.StatusBadRequest, "The audio upload could not be read. Please send a WAV recording.")
		}
		return audio.Clip{}, false
	}
	return clip, true
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	choices := s.voices.Choices()
	out := make([]choiceJSON, len(choices))
	for i, c := range choices {
		out[i] = choiceJSON{ID: c.Ref.String(), Label: c.Label}
	}
	writeJSON(w, http.StatusOK, listVoicesResponse{Choices: out})
}

func (s *Server) handleCreateVoice(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.formClip(w, r)
	if !ok {
		return
	}

	id, err := s.voices.Create(r.FormValue("name"), clip, r.FormValue("script"))
	if err != nil {
		s.metrics.RecordVoiceOp(r.Context(), "create", "error")
		s.respondError(w, r, err)
		return
	}
	s.metrics.RecordVoiceOp(r.Context(), "create", "ok")

	v, err := s.voices.Get(voice.Saved(id))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	observe.Logger(r.Context()).Info("api: voice created", "id", id, "name", v.Name)
	writeJSON(w, http.StatusCreated, voiceToJSON(v))
}

func (s *Server) handleGetVoice(w http.ResponseWriter, r *http.Request) {
	ref := voice.ParseRef(r.PathValue("id"))
	if ref.IsGuest() {
		// The guest entry is a picker affordance, not a saved voice.
		writeError(w, http.StatusNotFound, "Voice not found.")
		return
	}
	v, err := s.voices.Get(ref)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voiceToJSON(v))
}

func (s *Server) handleUpdateVoice(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.formClip(w, r)
	if !ok {
		return
	}

	ref := voice.ParseRef(r.PathValue("id"))
	if err := s.voices.Update(ref, clip, r.FormValue("script")); err != nil {
		s.metrics.RecordVoiceOp(r.Context(), "update", "error")
		s.respondError(w, r, err)
		return
	}
	s.metrics.RecordVoiceOp(r.Context(), "update", "ok")

	v, err := s.voices.Get(ref)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	observe.Logger(r.Context()).Info("api: voice updated", "id", v.ID, "name", v.Name)
	writeJSON(w, http.StatusOK, voiceToJSON(v))
}

func (s *Server) handleDeleteVoice(w http.ResponseWriter, r *http.Request) {
	ref := voice.ParseRef(r.PathValue("id"))
	if err := s.voices.Delete(ref); err != nil {
		s.metrics.RecordVoiceOp(r.Context(), "delete", "error")
		s.respondError(w, r, err)
		return
	}
	s.metrics.RecordVoiceOp(r.Context(), "delete", "ok")

	observe.Logger(r.Context()).Info("api: voice deleted", "id", ref.String())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVoiceAudio(w http.ResponseWriter, r *http.Request) {
	ref := voice.ParseRef(r.PathValue("id"))
	if ref.IsGuest() {
		writeError(w, http.StatusNotFound, "Voice not found.")
		return
	}
	clip, _, err := s.voices.Reference(ref)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	if _, err := w.Write(audio.EncodeWAV(clip)); err != nil {
		observe.Logger(r.Context()).Warn("api: write reference audio failed", "id", ref.String(), "err", err)
	}
}

type scriptResponse struct {
	Script string `json:"script"`
}

// handleVoiceScript returns the reference script to display for a voice.
// Unlike the detail route it also answers for the guest entry, which
// resolves to the global default script.
func (s *Server) handleVoiceScript(w http.ResponseWriter, r *http.Request) {
	ref := voice.ParseRef(r.PathValue("id"))
	writeJSON(w, http.StatusOK, scriptResponse{Script: s.voices.ResolveScript(ref)})
}

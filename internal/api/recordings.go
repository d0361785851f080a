package api

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/MrWong99/voxmimic/internal/observe"
	"github.com/MrWong99/voxmimic/internal/recording"
	"github.com/MrWong99/voxmimic/pkg/audio"
)

// validationJSON mirrors a recording verdict on the wire.
type validationJSON struct {
	OK       bool    `json:"ok"`
	Message  string  `json:"message"`
	Duration float64 `json:"duration"`
	RMS      float64 `json:"rms"`
	Peak     float64 `json:"peak"`
}

func resultToJSON(res recording.Result) validationJSON {
	return validationJSON{
		OK:       res.OK,
		Message:  res.Message,
		Duration: res.Duration,
		RMS:      res.RMS,
		Peak:     res.Peak,
	}
}

// handleValidateRecording scores an uploaded recording against the quality
// gate without persisting anything. The verdict uses the same thresholds as
// voice creation, so a recording accepted here will be accepted there.
func (s *Server) handleValidateRecording(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.formClip(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resultToJSON(recording.Validate(clip)))
}

// liveConfig is the first message of a live recording session.
type liveConfig struct {
	Rate     int `json:"rate"`
	Channels int `json:"channels"`
}

const (
	// maxLiveSeconds bounds how much audio one live session may buffer.
	maxLiveSeconds = 300

	// maxLiveFrameBytes is the per-message read limit for live sessions.
	maxLiveFrameBytes = 1 << 20
)

// handleLiveRecording upgrades to a websocket and scores the recording as it
// is captured. The client first sends a JSON text message with the stream
// format, then streams interleaved little-endian 16-bit PCM as binary
// messages. After every frame the server replies with the verdict for the
// audio received so far. Nothing is persisted; the client re-submits the
// final recording through the regular endpoints.
func (s *Server) handleLiveRecording(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("api: websocket accept failed", "err", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "session aborted")
	c.SetReadLimit(maxLiveFrameBytes)

	ctx := r.Context()

	typ, data, err := c.Read(ctx)
	if err != nil {
		return
	}
	var cfg liveConfig
	if typ != websocket.MessageText || json.Unmarshal(data, &cfg) != nil || cfg.Rate <= 0 {
		c.Close(websocket.StatusUnsupportedData, "expected a JSON config message with a positive rate")
		return
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	format := audio.Format{Encoding: audio.PCM16, Channels: cfg.Channels, Rate: cfg.Rate}
	maxSamples := maxLiveSeconds * cfg.Rate

	var samples []float64
	for {
		typ, frame, err := c.Read(ctx)
		if err != nil {
			// Normal closure ends up here too; nothing was persisted.
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}

		chunk := audio.Normalize(frame, format)
		samples = append(samples, chunk.Samples...)
		if len(samples) > maxSamples {
			c.Close(websocket.StatusPolicyViolation, "recording exceeds the session limit")
			return
		}

		verdict := recording.Validate(audio.Clip{Samples: samples, Rate: cfg.Rate})
		payload, err := json.Marshal(resultToJSON(verdict))
		if err != nil {
			return
		}
		if err := c.Write(ctx, websocket.MessageText, payload); err != nil {
			return
		}
	}
}

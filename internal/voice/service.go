// Package voice implements the voice library: creating, re-recording,
// deleting and listing saved voices, resolving reference scripts and holding
// the process-wide generation settings.
//
// Saved voices are identified by a [Ref]. The reserved guest identity
// ([Guest]) is not a stored voice: it never appears in the registry, refuses
// update and delete, and always resolves its script to the global default.
//
// All operations are safe for concurrent use.
package voice

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/voxmimic/internal/recording"
	"github.com/MrWong99/voxmimic/internal/registry"
	"github.com/MrWong99/voxmimic/pkg/audio"
)

// DefaultReferenceScript is the fallback reference script: pangrams with
// diverse phonemes for voice capture. It is used whenever the registry
// document carries no default script of its own.
const DefaultReferenceScript = "The quick brown fox jumps over the lazy dog.\n" +
	"She sells seashells by the seashore.\n" +
	"Peter Piper picked a peck of pickled peppers.\n" +
	"How much wood would a woodchuck chuck if a woodchuck could chuck wood?"

// GuestLabel is the display label of the guest entry in [Service.Choices].
const GuestLabel = "Guest (record new voice)"

var (
	// ErrNameRequired is returned by Create when the voice name is blank.
	ErrNameRequired = errors.New("voice name must not be empty")

	// ErrScriptRequired is returned when a reference script resolves to
	// blank where a non-blank one is required.
	ErrScriptRequired = errors.New("reference script must not be empty")

	// ErrGuestReserved is returned by Update, Delete and Reference when
	// called with the guest identity.
	ErrGuestReserved = errors.New("the guest voice cannot be changed")

	// ErrNotFound is returned when a saved voice id is not in the registry.
	ErrNotFound = errors.New("voice not found")
)

// Service orchestrates voice CRUD and settings access on top of the registry
// store. Recordings pass the quality gate before anything is persisted.
type Service struct {
	store    *registry.Store
	defaults Defaults
}

// Defaults are the fallback generation settings used when the registry
// document does not carry values of its own. A zero Script falls back to
// [DefaultReferenceScript].
type Defaults struct {
	Script   string
	Model    string
	Language string
}

// Settings are the resolved process-wide generation settings.
type Settings struct {
	DefaultScript string
	Model         string
	Language      string
}

// Choice is one entry of the voice picker.
type Choice struct {
	Label string
	Ref   Ref
}

// NewService returns a Service over the given store.
func NewService(store *registry.Store, defs Defaults) *Service {
	if defs.Script == "" {
		defs.Script = DefaultReferenceScript
	}
	return &Service{store: store, defaults: defs}
}

// Create saves a new voice from a recording. A blank script falls back to
// the global default script. The recording must pass the quality gate. The
// audio file is written before the registry entry is committed, so a failed
// write never leaves a voice visible without its recording. If committing
// the entry fails after the audio write, the orphaned directory is left
// behind; the registry itself stays intact.
//
// Returns the id of the new voice.
func (s *Service) Create(name string, clip audio.Clip, script string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if err := recording.Gate(clip); err != nil {
		return "", err
	}
	script = strings.TrimSpace(script)
	if script == "" {
		script = s.Settings().DefaultScript
	}
	if script == "" {
		return "", ErrScriptRequired
	}

	id := uuid.NewString()
	if err := s.store.WriteAudio(id, clip); err != nil {
		return "", fmt.Errorf("voice: create %q: %w", name, err)
	}

	v := registry.Voice{
		ID:              id,
		Name:            name,
		CreatedAt:       time.Now().UTC(),
		ReferenceScript: script,
	}
	err := s.store.Mutate(func(doc *registry.Document) error {
		doc.Voices = append(doc.Voices, v)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("voice: create %q: %w", name, err)
	}
	return id, nil
}

// Update re-records a saved voice: the recording must pass the quality gate,
// the audio file is overwritten and the reference script replaced. Name and
// creation time never change. Guest and unknown ids are refused.
func (s *Service) Update(ref Ref, clip audio.Clip, script string) error {
	if ref.IsGuest() {
		return ErrGuestReserved
	}
	doc := s.store.Load()
	if _, ok := doc.Find(ref.ID()); !ok {
		return ErrNotFound
	}
	if err := recording.Gate(clip); err != nil {
		return err
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return ErrScriptRequired
	}

	if err := s.store.WriteAudio(ref.ID(), clip); err != nil {
		return fmt.Errorf("voice: update %s: %w", ref.ID(), err)
	}
	err := s.store.Mutate(func(doc *registry.Document) error {
		for i := range doc.Voices {
			if doc.Voices[i].ID == ref.ID() {
				doc.Voices[i].ReferenceScript = script
				return nil
			}
		}
		return ErrNotFound
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("voice: update %s: %w", ref.ID(), err)
	}
	return nil
}

// Delete removes a saved voice. The registry entry is removed and persisted
// first; removing the on-disk directory afterwards is best effort and a
// failure there does not resurrect the voice. Guest and unknown ids are
// refused.
func (s *Service) Delete(ref Ref) error {
	if ref.IsGuest() {
		return ErrGuestReserved
	}

	err := s.store.Mutate(func(doc *registry.Document) error {
		if !doc.Remove(ref.ID()) {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("voice: delete %s: %w", ref.ID(), err)
	}

	if err := s.store.DeleteAudioDir(ref.ID()); err != nil {
		slog.Warn("voice: could not remove voice directory after delete", "id", ref.ID(), "err", err)
	}
	return nil
}

// Get returns the registry record of a saved voice.
func (s *Service) Get(ref Ref) (registry.Voice, error) {
	if ref.IsGuest() {
		return registry.Voice{}, ErrGuestReserved
	}
	doc := s.store.Load()
	v, ok := doc.Find(ref.ID())
	if !ok {
		return registry.Voice{}, ErrNotFound
	}
	return v, nil
}

// Reference returns the stored reference recording and script of a saved
// voice. A registry entry whose audio file is missing on disk reads as
// [registry.ErrAudioNotFound]; the entry itself stays in place.
func (s *Service) Reference(ref Ref) (audio.Clip, string, error) {
	v, err := s.Get(ref)
	if err != nil {
		return audio.Clip{}, "", err
	}

	clip, err := s.store.ReadAudio(ref.ID())
	if err != nil {
		return audio.Clip{}, "", err
	}

	script := v.ReferenceScript
	if strings.TrimSpace(script) == "" {
		script = s.Settings().DefaultScript
	}
	return clip, script, nil
}

// ResolveScript returns the reference script to show for a voice reference.
// Guest and unknown ids resolve to the global default script; a saved voice
// resolves to its own script, or the default when that is blank.
func (s *Service) ResolveScript(ref Ref) string {
	settings := s.Settings()
	if ref.IsGuest() {
		return settings.DefaultScript
	}

	doc := s.store.Load()
	v, ok := doc.Find(ref.ID())
	if !ok || strings.TrimSpace(v.ReferenceScript) == "" {
		return settings.DefaultScript
	}
	return v.ReferenceScript
}

// Choices lists the voice picker entries: the guest entry first, then all
// saved voices in registry order.
func (s *Service) Choices() []Choice {
	doc := s.store.Load()
	choices := make([]Choice, 0, len(doc.Voices)+1)
	choices = append(choices, Choice{Label: GuestLabel, Ref: Guest})
	for _, v := range doc.Voices {
		choices = append(choices, Choice{Label: v.Name, Ref: Saved(v.ID)})
	}
	return choices
}

// ---- settings ----

// Settings returns the resolved generation settings: stored values with the
// configured defaults filled in for anything blank.
func (s *Service) Settings() Settings {
	doc := s.store.Load()
	out := Settings{
		DefaultScript: doc.DefaultScript,
		Model:         doc.SelectedModel,
		Language:      doc.SelectedLanguage,
	}
	if out.DefaultScript == "" {
		out.DefaultScript = s.defaults.Script
	}
	if out.Model == "" {
		out.Model = s.defaults.Model
	}
	if out.Language == "" {
		out.Language = s.defaults.Language
	}
	return out
}

// SetDefaultScript stores a new global default reference script. Blank input
// is rejected: the guest identity depends on this script always resolving.
func (s *Service) SetDefaultScript(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrScriptRequired
	}
	return s.store.Mutate(func(doc *registry.Document) error {
		doc.DefaultScript = text
		return nil
	})
}

// SetModel stores the selected model id. A blank value clears the stored
// selection so reads fall back to the configured default.
func (s *Service) SetModel(id string) error {
	return s.store.Mutate(func(doc *registry.Document) error {
		doc.SelectedModel = strings.TrimSpace(id)
		return nil
	})
}

// SetLanguage stores the selected generation language. A blank value clears
// the stored selection so reads fall back to the configured default.
func (s *Service) SetLanguage(lang string) error {
	return s.store.Mutate(func(doc *registry.Document) error {
		doc.SelectedLanguage = strings.TrimSpace(lang)
		return nil
	})
}

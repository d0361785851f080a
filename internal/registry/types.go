// Package registry persists the voice library for voxmimic.
//
// All durable state lives under a single data directory: one JSON document
// (registry.json) holding voice metadata and the global generation settings,
// plus one subdirectory per voice holding its reference recording as WAV:
//
//	<dataDir>/registry.json
//	<dataDir>/voices/<id>/reference.wav
//
// The document is small and is always read and written as a whole; partial
// updates do not exist. A corrupt or missing document degrades to an empty
// library rather than an error so the generation path stays usable.
//
// All store operations are safe for concurrent use within one process.
// Cross-process locking is not provided.
package registry

import (
	"slices"
	"time"
)

// Voice is one saved voice: a named reference recording plus the script that
// was read aloud to produce it.
type Voice struct {
	// ID is a unique identifier assigned at creation. Immutable, never reused.
	ID string `json:"id"`

	// Name is the display name. There is no rename operation.
	Name string `json:"name"`

	// CreatedAt is the creation timestamp in UTC. Immutable.
	CreatedAt time.Time `json:"created_at"`

	// ReferenceScript is the text read aloud for the reference recording.
	// It is replaced whenever the voice is re-recorded and is never empty
	// once set.
	ReferenceScript string `json:"reference_script"`
}

// Document is the root object of the persisted registry: the ordered voice
// list plus the global generation settings.
type Document struct {
	// Voices in insertion order. Deletions remove entries in place without
	// reordering the survivors.
	Voices []Voice `json:"voices"`

	// DefaultScript is the fallback reference script used by the guest
	// identity and by new voices created without a script of their own.
	DefaultScript string `json:"default_script,omitempty"`

	// SelectedModel and SelectedLanguage are process-wide generation
	// settings, mutable independently of any voice.
	SelectedModel    string `json:"selected_model,omitempty"`
	SelectedLanguage string `json:"selected_language,omitempty"`
}

// Find returns the voice with the given id.
func (d *Document) Find(id string) (Voice, bool) {
	for _, v := range d.Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// Remove deletes the voice with the given id, preserving the order of the
// remaining entries. It reports whether an entry was removed.
func (d *Document) Remove(id string) bool {
	n := len(d.Voices)
	d.Voices = slices.DeleteFunc(d.Voices, func(v Voice) bool { return v.ID == id })
	return len(d.Voices) != n
}

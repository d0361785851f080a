package voice

import "strings"

// GuestID is the wire form of the reserved guest identity. It appears only
// at API boundaries; inside the service a [Ref] is used instead.
const GuestID = "guest"

// Ref identifies the voice a request is about: the reserved guest identity
// or a saved voice by id. The zero value is the guest identity.
type Ref struct {
	id string
}

// Guest is the reserved identity for ad-hoc cloning from a live recording.
// It is never present in the registry and can neither be re-recorded nor
// deleted.
var Guest = Ref{}

// Saved returns a Ref for a stored voice id.
func Saved(id string) Ref { return Ref{id: id} }

// ParseRef maps the wire form of a voice reference to a Ref. An empty
// string and [GuestID] both mean the guest identity; anything else is taken
// as a saved voice id.
func ParseRef(s string) Ref {
	s = strings.TrimSpace(s)
	if s == "" || s == GuestID {
		return Guest
	}
	return Ref{id: s}
}

// IsGuest reports whether r is the reserved guest identity.
func (r Ref) IsGuest() bool { return r.id == "" }

// ID returns the saved voice id, or the empty string for guest.
func (r Ref) ID() string { return r.id }

// String returns the wire form: [GuestID] for guest, the id otherwise.
func (r Ref) String() string {
	if r.IsGuest() {
		return GuestID
	}
	return r.id
}

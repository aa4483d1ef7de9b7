package stix

// Presence is the bit flag recorded for every property of a constructed record.
type Presence uint8

const (
	PresenceSeen           Presence = 1 << iota // Value was supplied by the caller or input.
	PresenceDefaultApplied                      // Value came from the property default.
	PresenceCustom                              // Property is outside the property set.
)

// Has reports whether all bits of f are set.
func (p Presence) Has(f Presence) bool { return p&f == f }

// PresenceMap maps property names to Presence flags.
type PresenceMap map[string]Presence

// Has reports whether all bits of f are set for name.
func (pm PresenceMap) Has(name string, f Presence) bool {
	return pm[name]&f == f
}

func (pm PresenceMap) clone() PresenceMap {
	out := make(PresenceMap, len(pm))
	for k, v := range pm {
		out[k] = v
	}
	return out
}

// Package reconcile implements the merge policy for incoming hotspot
// records. Every adapter feeds the store through this one path, so the same
// invariants hold regardless of data origin: merges are field-by-field, a
// known field never regresses to unknown, and replaying the same input is a
// no-op.
package reconcile

import (
	"time"

	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/ring"
)

// Reconciler implements datastore.Reconciler.
type Reconciler struct{}

// New returns a Reconciler.
func New() *Reconciler {
	return &Reconciler{}
}

// Reconcile decides what to do with an incoming record. With no existing
// record the verdict is Insert. Otherwise the existing record is merged
// field by field: missing fields are filled from the incoming record, and a
// conflicting non-empty field is replaced only when the incoming origin
// outranks the existing one (journal > import > live feed). When nothing
// changes the verdict is Skip, which is what makes repeated imports and
// journal replays idempotent.
//
// On Update the incoming record is rewritten in place to the merged result;
// the returned Decision lists the columns that changed.
//
// Presence is always tested with explicit nil and empty-value checks on
// pointer and enum fields. Zero is a legitimate coordinate value and must
// never be conflated with "missing".
func (r *Reconciler) Reconcile(existing, incoming *datastore.Hotspot) datastore.Decision {
	deriveDensity(incoming)

	if existing == nil {
		if incoming.Count < 1 {
			incoming.Count = 1
		}
		return datastore.Decision{Action: datastore.ActionInsert}
	}

	merged := *existing
	var changed []string

	incomingWins := incoming.Origin.Fidelity() > existing.Origin.Fidelity()

	// hotspot_count reflects the current in-game ring state, so the most
	// recent scan wins; it is never accumulated.
	if incoming.Count >= 1 && incoming.Count != merged.Count &&
		incoming.ScannedAt.After(merged.ScannedAt) {
		merged.Count = incoming.Count
		changed = append(changed, "count")
	}

	// ring_type never regresses from a known value to Unknown.
	if incoming.RingType.Known() {
		if !merged.RingType.Known() {
			merged.RingType = incoming.RingType
			changed = append(changed, "ring_type")
		} else if incoming.RingType != merged.RingType && incomingWins {
			merged.RingType = incoming.RingType
			changed = append(changed, "ring_type")
		}
	}

	if c := mergeFloat(&merged.RingMassMT, incoming.RingMassMT, incomingWins); c {
		changed = append(changed, "ring_mass_mt")
	}
	if c := mergeFloat(&merged.InnerRadiusM, incoming.InnerRadiusM, incomingWins); c {
		changed = append(changed, "inner_radius_m")
	}
	if c := mergeFloat(&merged.OuterRadiusM, incoming.OuterRadiusM, incomingWins); c {
		changed = append(changed, "outer_radius_m")
	}
	if c := mergeFloat(&merged.LSDistance, incoming.LSDistance, incomingWins); c {
		changed = append(changed, "ls_distance")
	}

	// Density follows the physical fields: whenever mass and radii are
	// known the stored density must equal the derived value.
	if d := ring.DensityPtr(merged.RingMassMT, merged.InnerRadiusM, merged.OuterRadiusM); d != nil {
		if merged.Density == nil || *merged.Density != *d {
			merged.Density = d
			changed = append(changed, "density")
		}
	} else if c := mergeFloat(&merged.Density, incoming.Density, incomingWins); c {
		changed = append(changed, "density")
	}

	// Coordinates never regress to missing, and move only as a unit.
	if incoming.HasCoords() {
		if !merged.HasCoords() || (incomingWins && coordsDiffer(&merged, incoming)) {
			merged.X, merged.Y, merged.Z = incoming.X, incoming.Y, incoming.Z
			changed = append(changed, "x", "y", "z")
			if incoming.CoordSource != ring.CoordUnknown {
				merged.CoordSource = incoming.CoordSource
				changed = append(changed, "coord_source")
			}
		}
	}

	// coord_source may still improve on its own when the coordinates agree
	// but the existing row predates provenance tracking.
	if merged.HasCoords() && merged.CoordSource == ring.CoordUnknown &&
		incoming.CoordSource != ring.CoordUnknown {
		merged.CoordSource = incoming.CoordSource
		changed = append(changed, "coord_source")
	}

	if incoming.SystemAddress != 0 && merged.SystemAddress == 0 {
		merged.SystemAddress = incoming.SystemAddress
		changed = append(changed, "system_address")
	}

	if len(changed) == 0 {
		return datastore.Decision{Action: datastore.ActionSkip}
	}

	if incoming.ScannedAt.After(merged.ScannedAt) {
		merged.ScannedAt = incoming.ScannedAt
		changed = append(changed, "scanned_at")
	}
	// Track which adapter last contributed, but never let a lower-fidelity
	// fill demote the provenance used for future conflict resolution.
	if incoming.Origin.Fidelity() >= existing.Origin.Fidelity() && incoming.Origin != merged.Origin {
		merged.Origin = incoming.Origin
		changed = append(changed, "origin")
	}

	*incoming = merged
	return datastore.Decision{Action: datastore.ActionUpdate, Fields: dedupFields(changed)}
}

// deriveDensity recomputes density from mass and radii when all are present.
// Derived values are never trusted from the wire; only records that carry a
// density without the physical fields (pre-calculated community data) keep
// the supplied value.
func deriveDensity(h *datastore.Hotspot) {
	if d := ring.DensityPtr(h.RingMassMT, h.InnerRadiusM, h.OuterRadiusM); d != nil {
		h.Density = d
	}
}

// mergeFloat fills dst from src when dst is missing, or replaces it on a
// genuine conflict when the incoming source outranks the existing one.
// Reports whether dst changed.
func mergeFloat(dst **float64, src *float64, incomingWins bool) bool {
	if src == nil {
		return false
	}
	if *dst == nil {
		v := *src
		*dst = &v
		return true
	}
	if **dst != *src && incomingWins {
		v := *src
		*dst = &v
		return true
	}
	return false
}

func coordsDiffer(a, b *datastore.Hotspot) bool {
	return *a.X != *b.X || *a.Y != *b.Y || *a.Z != *b.Z
}

func dedupFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Touch is a small helper for adapters that only know a scan happened now.
func Touch(h *datastore.Hotspot) {
	if h.ScannedAt.IsZero() {
		h.ScannedAt = time.Now().UTC()
	}
}

package journal

import (
	"time"

	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/reconcile"
	"github.com/tphakala/ringscout/internal/ring"
)

// maxTrackedRings bounds the per-session ring physical-data lookup so a long
// session cannot grow it without limit.
const maxTrackedRings = 512

// Sink receives the normalized output of a journal session: hotspot records
// ready for reconciliation, confirmed arrivals, and ring annotations.
type Sink interface {
	Record(*datastore.Hotspot)
	Visit(systemName string, systemAddress int64, at time.Time)
	Annotation(*datastore.RingAnnotation)
}

// ringPhysical is the body-scan data held until the matching hotspot signal
// event arrives later in the stream.
type ringPhysical struct {
	ringClass    string
	massMT       float64
	innerRadiusM float64
	outerRadiusM float64
	distanceLS   float64
}

type ringKey struct {
	systemAddress int64
	ringName      string
}

// Session turns the tailer's typed events into normalized records. A body
// composition scan and the per-ring hotspot signals arrive at different
// times; the session cross-references them through a bounded in-memory
// lookup keyed by (system address, ring name).
//
// A Session is owned by one goroutine; the tailer handler drives it.
type Session struct {
	sink Sink

	currentSystem  string
	currentAddress int64
	currentPos     *[3]float64

	rings map[ringKey]ringPhysical
}

// NewSession creates a Session feeding the sink.
func NewSession(sink Sink) *Session {
	return &Session{
		sink:  sink,
		rings: make(map[ringKey]ringPhysical),
	}
}

// Reset clears per-session state. Called when the tailer switches to a new
// session file.
func (s *Session) Reset() {
	s.currentSystem = ""
	s.currentAddress = 0
	s.currentPos = nil
	s.rings = make(map[ringKey]ringPhysical)
}

// HandleEvent processes one journal event in arrival order.
func (s *Session) HandleEvent(ev Event) {
	switch e := ev.(type) {
	case *SystemArrival:
		s.handleArrival(e)
	case *BodyScan:
		s.handleScan(e)
	case *HotspotSignals:
		s.handleSignals(e)
	}
}

func (s *Session) handleArrival(e *SystemArrival) {
	s.currentSystem = e.StarSystem
	s.currentAddress = e.SystemAddress
	if e.StarPos != nil {
		pos := *e.StarPos
		s.currentPos = &pos
	}
	s.sink.Visit(e.StarSystem, e.SystemAddress, e.Timestamp)
}

func (s *Session) handleScan(e *BodyScan) {
	for _, info := range e.Rings {
		if len(s.rings) >= maxTrackedRings {
			// Bounded: drop the whole lookup rather than grow it. Signals
			// for older scans then merge without physical data, which the
			// reconciler fills in on a later rescan.
			logger.Warn("Ring lookup at capacity, clearing", "capacity", maxTrackedRings)
			s.rings = make(map[ringKey]ringPhysical)
		}
		s.rings[ringKey{e.SystemAddress, info.Name}] = ringPhysical{
			ringClass:    info.RingClass,
			massMT:       info.MassMT,
			innerRadiusM: info.InnerRadiusM,
			outerRadiusM: info.OuterRadiusM,
			distanceLS:   e.DistanceLS,
		}
	}

	if reserve := ring.ParseReserveLevel(e.ReserveLevel); reserve != ring.ReserveUnknown {
		for _, info := range e.Rings {
			body, label := reconcile.SplitRingName(s.currentSystem, info.Name)
			if label == "" {
				continue
			}
			s.sink.Annotation(&datastore.RingAnnotation{
				SystemName:   s.currentSystem,
				BodyName:     body,
				RingName:     label,
				ReserveLevel: reserve,
			})
		}
	}
}

func (s *Session) handleSignals(e *HotspotSignals) {
	if s.currentSystem == "" {
		// Signals before any arrival event: no system context to attach
		// them to, skip rather than guess.
		logger.Warn("Hotspot signals with no current system, skipped", "body", e.BodyName)
		return
	}

	body, label := reconcile.SplitRingName(s.currentSystem, e.BodyName)
	phys, havePhys := s.rings[ringKey{e.SystemAddress, e.BodyName}]
	if havePhys {
		// Consumed: the signal event is the second half of the pair.
		delete(s.rings, ringKey{e.SystemAddress, e.BodyName})
	}

	overlap := len(e.Signals) > 1

	for _, sig := range e.Signals {
		rec := &datastore.Hotspot{
			SystemAddress: e.SystemAddress,
			SystemName:    s.currentSystem,
			BodyName:      body,
			RingName:      label,
			Material:      sig.Type,
			Count:         sig.Count,
			Origin:        ring.OriginJournal,
			ScannedAt:     e.Timestamp,
		}
		if s.currentPos != nil {
			x, y, z := s.currentPos[0], s.currentPos[1], s.currentPos[2]
			rec.X, rec.Y, rec.Z = &x, &y, &z
			rec.CoordSource = ring.CoordJournal
		}
		if havePhys {
			rec.RingType = ring.ParseType(phys.ringClass)
			if phys.massMT > 0 {
				m := phys.massMT
				rec.RingMassMT = &m
			}
			if phys.innerRadiusM > 0 {
				v := phys.innerRadiusM
				rec.InnerRadiusM = &v
			}
			if phys.outerRadiusM > 0 {
				v := phys.outerRadiusM
				rec.OuterRadiusM = &v
			}
			if phys.distanceLS > 0 {
				v := phys.distanceLS
				rec.LSDistance = &v
			}
		}
		s.sink.Record(rec)
	}

	if overlap {
		s.sink.Annotation(&datastore.RingAnnotation{
			SystemName: s.currentSystem,
			BodyName:   body,
			RingName:   label,
			Overlap:    true,
		})
	}
}

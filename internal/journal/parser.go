package journal

import (
	"encoding/json"
	"time"

	"github.com/tphakala/ringscout/internal/errors"
)

// rawEvent is the envelope every journal line shares.
type rawEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
}

// ParseLine parses one journal line into a typed event. Lines for event
// types this package does not consume return (nil, nil); malformed JSON or
// a malformed payload for a known event type returns an error so the caller
// can log and skip it. A parse error never aborts the stream.
func ParseLine(line []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, errors.New(err).
			Component("journal").
			Category(errors.CategoryJournalParsing).
			Build()
	}

	switch raw.Event {
	case "FSDJump", "CarrierJump", "Docked", "Location":
		return parseArrival(line, &raw)
	case "Scan":
		return parseScan(line, &raw)
	case "SAASignalsFound":
		return parseSignals(line, &raw)
	case "MiningRefined", "MaterialCollected":
		return parseCollected(line, &raw)
	default:
		return nil, nil
	}
}

func parseArrival(line []byte, raw *rawEvent) (Event, error) {
	var payload struct {
		StarSystem    string      `json:"StarSystem"`
		SystemAddress int64       `json:"SystemAddress"`
		StarPos       *[3]float64 `json:"StarPos"`
	}
	if err := json.Unmarshal(line, &payload); err != nil {
		return nil, parseErr(raw.Event, err)
	}
	if payload.StarSystem == "" {
		return nil, errors.Newf("%s event without StarSystem", raw.Event).
			Component("journal").
			Category(errors.CategoryJournalParsing).
			Build()
	}
	return &SystemArrival{
		Timestamp:     raw.Timestamp,
		JournalEvent:  raw.Event,
		StarSystem:    payload.StarSystem,
		SystemAddress: payload.SystemAddress,
		StarPos:       payload.StarPos,
	}, nil
}

func parseScan(line []byte, raw *rawEvent) (Event, error) {
	var payload struct {
		BodyName      string     `json:"BodyName"`
		SystemAddress int64      `json:"SystemAddress"`
		DistanceLS    float64    `json:"DistanceFromArrivalLS"`
		ReserveLevel  string     `json:"ReserveLevel"`
		Rings         []RingInfo `json:"Rings"`
	}
	if err := json.Unmarshal(line, &payload); err != nil {
		return nil, parseErr(raw.Event, err)
	}
	if len(payload.Rings) == 0 {
		// Ringless body scans are noise for this store.
		return nil, nil
	}
	return &BodyScan{
		Timestamp:     raw.Timestamp,
		BodyName:      payload.BodyName,
		SystemAddress: payload.SystemAddress,
		DistanceLS:    payload.DistanceLS,
		ReserveLevel:  payload.ReserveLevel,
		Rings:         payload.Rings,
	}, nil
}

func parseSignals(line []byte, raw *rawEvent) (Event, error) {
	var payload struct {
		BodyName      string `json:"BodyName"`
		SystemAddress int64  `json:"SystemAddress"`
		Signals       []struct {
			Type          string `json:"Type"`
			TypeLocalised string `json:"Type_Localised"`
			Count         int    `json:"Count"`
		} `json:"Signals"`
	}
	if err := json.Unmarshal(line, &payload); err != nil {
		return nil, parseErr(raw.Event, err)
	}
	if payload.BodyName == "" || len(payload.Signals) == 0 {
		return nil, nil
	}

	ev := &HotspotSignals{
		Timestamp:     raw.Timestamp,
		BodyName:      payload.BodyName,
		SystemAddress: payload.SystemAddress,
	}
	for _, s := range payload.Signals {
		name := s.TypeLocalised
		if name == "" {
			name = s.Type
		}
		if name == "" || s.Count < 1 {
			continue
		}
		ev.Signals = append(ev.Signals, Signal{Type: name, Count: s.Count})
	}
	if len(ev.Signals) == 0 {
		return nil, nil
	}
	return ev, nil
}

func parseCollected(line []byte, raw *rawEvent) (Event, error) {
	var payload struct {
		Type          string `json:"Type"`
		TypeLocalised string `json:"Type_Localised"`
		Name          string `json:"Name"`
		Category      string `json:"Category"`
	}
	if err := json.Unmarshal(line, &payload); err != nil {
		return nil, parseErr(raw.Event, err)
	}
	name := payload.TypeLocalised
	if name == "" {
		name = payload.Type
	}
	if name == "" {
		name = payload.Name
	}
	if name == "" {
		return nil, nil
	}
	return &MaterialCollected{
		Timestamp: raw.Timestamp,
		Name:      name,
		Category:  payload.Category,
	}, nil
}

func parseErr(event string, err error) error {
	return errors.New(err).
		Component("journal").
		Category(errors.CategoryJournalParsing).
		Context("event", event).
		Build()
}

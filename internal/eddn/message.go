package eddn

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/reconcile"
	"github.com/tphakala/ringscout/internal/ring"
)

// envelope is the outer wrapper every relay message shares. Only the schema
// reference and the inner journal message matter to this listener.
type envelope struct {
	SchemaRef string          `json:"$schemaRef"`
	Header    envelopeHeader  `json:"header"`
	Message   json.RawMessage `json:"message"`
}

type envelopeHeader struct {
	GatewayTimestamp time.Time `json:"gatewayTimestamp"`
	UploaderID       string    `json:"uploaderID"`
}

// journalMessage is the subset of the relayed journal schema this listener
// consumes. StarPos is always present on relay messages because the gateway
// augments them, but it is kept optional here and validated explicitly.
type journalMessage struct {
	Timestamp     time.Time    `json:"timestamp"`
	Event         string       `json:"event"`
	StarSystem    string       `json:"StarSystem"`
	SystemAddress int64        `json:"SystemAddress"`
	StarPos       *[3]float64  `json:"StarPos"`
	BodyName      string       `json:"BodyName"`
	Signals       []feedSignal `json:"Signals"`
}

type feedSignal struct {
	Type          string `json:"Type"`
	TypeLocalised string `json:"Type_Localised"`
	Count         int    `json:"Count"`
}

// Normalize parses one raw relay payload into hotspot records. Messages
// carrying a schema or event this listener does not consume return
// (nil, nil); a payload that claims the right schema but cannot be decoded
// or validated returns an error so the caller can count and skip it.
func Normalize(payload []byte) ([]*datastore.Hotspot, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, feedErr(err, "envelope")
	}

	if !strings.Contains(env.SchemaRef, "/schemas/journal/") {
		return nil, nil
	}

	var msg journalMessage
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return nil, feedErr(err, "message")
	}
	if msg.Event != "SAASignalsFound" {
		return nil, nil
	}
	if msg.StarSystem == "" || msg.BodyName == "" {
		return nil, errors.Newf("signal message without system or body name").
			Component("eddn").
			Category(errors.CategoryFeedMessage).
			Build()
	}

	body, ringLabel := reconcile.SplitRingName(msg.StarSystem, msg.BodyName)
	if ringLabel == "" {
		// Signal source is not a ring (surface or cluster signals).
		return nil, nil
	}

	scannedAt := msg.Timestamp
	if scannedAt.IsZero() {
		scannedAt = env.Header.GatewayTimestamp
	}

	var records []*datastore.Hotspot
	for _, s := range msg.Signals {
		material := signalMaterial(&s)
		if material == "" || s.Count < 1 {
			continue
		}
		rec := &datastore.Hotspot{
			SystemAddress: msg.SystemAddress,
			SystemName:    msg.StarSystem,
			BodyName:      body,
			RingName:      ringLabel,
			Material:      material,
			Count:         s.Count,
			Origin:        ring.OriginLiveFeed,
			ScannedAt:     scannedAt.UTC(),
		}
		if msg.StarPos != nil {
			x, y, z := msg.StarPos[0], msg.StarPos[1], msg.StarPos[2]
			rec.X, rec.Y, rec.Z = &x, &y, &z
			// StarPos is journal ground truth relayed verbatim.
			rec.CoordSource = ring.CoordJournal
		}
		records = append(records, rec)
	}
	return records, nil
}

// signalMaterial extracts the material name of one signal. Non-mineral
// signal categories arrive as unlocalised $SAA_SignalType_* identifiers and
// are dropped, since the relay carries no localisation to resolve them.
func signalMaterial(s *feedSignal) string {
	if s.TypeLocalised != "" {
		return s.TypeLocalised
	}
	if strings.HasPrefix(s.Type, "$") {
		return ""
	}
	return s.Type
}

func feedErr(err error, part string) error {
	return errors.New(err).
		Component("eddn").
		Category(errors.CategoryFeedMessage).
		Context("part", part).
		Build()
}

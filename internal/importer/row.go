package importer

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/reconcile"
	"github.com/tphakala/ringscout/internal/ring"
)

// rowReader streams one dataset row at a time. Next returns io.EOF at end
// of input; any other error marks one malformed row, and the reader stays
// usable for the rows after it.
type rowReader interface {
	Next() (*datastore.Hotspot, error)
	Skip(n int64) error
}

// newRowReader picks the format by file extension: .csv is CSV with a
// header row, everything else is JSON lines.
func newRowReader(path string, r io.Reader) (rowReader, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return newCSVReader(r)
	}
	return newJSONLReader(r), nil
}

// datasetRow is the JSONL row shape. All physical attributes are optional;
// a pre-calculated density is honored only when the physicals to recompute
// it are absent, which the reconciler enforces.
type datasetRow struct {
	System        string   `json:"system"`
	SystemAddress int64    `json:"systemAddress"`
	Body          string   `json:"body"`
	Ring          string   `json:"ring"`
	Material      string   `json:"material"`
	Count         int      `json:"count"`
	RingType      string   `json:"ringType"`
	MassMT        *float64 `json:"massMT"`
	InnerRadiusM  *float64 `json:"innerRadiusM"`
	OuterRadiusM  *float64 `json:"outerRadiusM"`
	Density       *float64 `json:"density"`
	LSDistance    *float64 `json:"lsDistance"`
	X             *float64 `json:"x"`
	Y             *float64 `json:"y"`
	Z             *float64 `json:"z"`
	ScannedAt     string   `json:"scannedAt"`
}

// toRecord validates a row and maps it to the store record shape.
func (row *datasetRow) toRecord() (*datastore.Hotspot, error) {
	if row.System == "" || row.Ring == "" || row.Material == "" {
		return nil, errors.Newf("row missing system, ring or material").
			Component("importer").
			Category(errors.CategoryImport).
			Build()
	}

	body, label := row.Body, row.Ring
	if body == "" {
		// Community datasets usually carry the full ring name.
		body, label = reconcile.SplitRingName(row.System, row.Ring)
		if label == "" {
			return nil, errors.Newf("unparseable ring name %q", row.Ring).
				Component("importer").
				Category(errors.CategoryImport).
				Build()
		}
	}

	rec := &datastore.Hotspot{
		SystemAddress: row.SystemAddress,
		SystemName:    row.System,
		BodyName:      body,
		RingName:      label,
		Material:      row.Material,
		Count:         row.Count,
		RingType:      ring.ParseType(row.RingType),
		RingMassMT:    row.MassMT,
		InnerRadiusM:  row.InnerRadiusM,
		OuterRadiusM:  row.OuterRadiusM,
		Density:       row.Density,
		LSDistance:    row.LSDistance,
		X:             row.X,
		Y:             row.Y,
		Z:             row.Z,
		Origin:        ring.OriginImport,
	}
	if rec.HasCoords() {
		rec.CoordSource = ring.CoordBundled
	}
	if row.ScannedAt != "" {
		if t, err := time.Parse(time.RFC3339, row.ScannedAt); err == nil {
			rec.ScannedAt = t.UTC()
		}
	}
	// Rows without a usable timestamp count as scanned at import time.
	reconcile.Touch(rec)
	return rec, nil
}

type jsonlReader struct {
	scanner *bufio.Scanner
}

func newJSONLReader(r io.Reader) *jsonlReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &jsonlReader{scanner: scanner}
}

func (j *jsonlReader) Next() (*datastore.Hotspot, error) {
	for j.scanner.Scan() {
		line := strings.TrimSpace(j.scanner.Text())
		if line == "" {
			continue
		}
		var row datasetRow
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, errors.New(err).
				Component("importer").
				Category(errors.CategoryImport).
				Build()
		}
		return row.toRecord()
	}
	if err := j.scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("importer").
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil, io.EOF
}

func (j *jsonlReader) Skip(n int64) error {
	for i := int64(0); i < n; i++ {
		if _, err := j.Next(); err == io.EOF {
			return nil
		}
	}
	return nil
}

type csvReader struct {
	reader *csv.Reader
	cols   map[string]int
}

// newCSVReader consumes the header row and builds the column map.
func newCSVReader(r io.Reader) (*csvReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.New(err).
			Component("importer").
			Category(errors.CategoryImport).
			Context("part", "header").
			Build()
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return &csvReader{reader: cr, cols: cols}, nil
}

func (c *csvReader) Next() (*datastore.Hotspot, error) {
	fields, err := c.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.New(err).
			Component("importer").
			Category(errors.CategoryImport).
			Build()
	}

	row := datasetRow{
		System:       c.str(fields, "system"),
		Body:         c.str(fields, "body"),
		Ring:         c.str(fields, "ring"),
		Material:     c.str(fields, "material"),
		RingType:     c.str(fields, "ringtype"),
		ScannedAt:    c.str(fields, "scannedat"),
		MassMT:       c.float(fields, "massmt"),
		InnerRadiusM: c.float(fields, "innerradiusm"),
		OuterRadiusM: c.float(fields, "outerradiusm"),
		Density:      c.float(fields, "density"),
		LSDistance:   c.float(fields, "lsdistance"),
		X:            c.float(fields, "x"),
		Y:            c.float(fields, "y"),
		Z:            c.float(fields, "z"),
	}
	if v := c.str(fields, "systemaddress"); v != "" {
		if addr, err := strconv.ParseInt(v, 10, 64); err == nil {
			row.SystemAddress = addr
		}
	}
	if v := c.str(fields, "count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			row.Count = n
		}
	}
	return row.toRecord()
}

func (c *csvReader) Skip(n int64) error {
	for i := int64(0); i < n; i++ {
		if _, err := c.reader.Read(); err == io.EOF {
			return nil
		} else if err != nil {
			continue
		}
	}
	return nil
}

func (c *csvReader) str(fields []string, col string) string {
	i, ok := c.cols[col]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func (c *csvReader) float(fields []string, col string) *float64 {
	s := c.str(fields, col)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

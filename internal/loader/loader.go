// Package loader reads glucose traces from the supported interchange
// formats: CSV exports, MessagePack trace files, and xDrip+ SQLite
// databases.
package loader

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/glucolab/agata/internal/trace"
)

// Timestamp layouts accepted in CSV input, tried in order.
var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// FromCSV reads a trace from CSV with a "t,glucose" header. The glucose
// column may be empty or "nan" for a missing reading. Rows may appear in
// any order; duplicate timestamps keep the first reading seen.
func FromCSV(r io.Reader) (*trace.Trace, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return trace.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(header[0], "t") || !strings.EqualFold(header[1], "glucose") {
		return nil, fmt.Errorf("unexpected CSV header %v, want t,glucose", header)
	}

	var samples []trace.Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		ts, err := parseTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("CSV line %d: %w", line, err)
		}

		s := trace.Sample{Time: ts}
		raw := strings.TrimSpace(rec[1])
		if raw == "" || strings.EqualFold(raw, "nan") {
			s.Missing = true
		} else {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("CSV line %d: bad glucose value %q", line, raw)
			}
			if math.IsNaN(v) {
				s.Missing = true
			} else {
				s.Value = v
			}
		}
		samples = append(samples, s)
	}
	return trace.NewFiltered(samples), nil
}

// FromCSVFile reads a trace from a CSV file on disk.
func FromCSVFile(path string) (*trace.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return FromCSV(f)
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range csvTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	// Unix seconds or milliseconds as a fallback. Values above 1e11
	// cannot be plausible second counts, so read them as milliseconds.
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}

// traceFile is the on-disk MessagePack layout. Glucose is nil for a
// missing reading so that NaN never hits the wire.
type traceFile struct {
	Version int          `msgpack:"version"`
	Samples []fileSample `msgpack:"samples"`
}

type fileSample struct {
	T       time.Time `msgpack:"t"`
	Glucose *float64  `msgpack:"glucose"`
}

const traceFileVersion = 1

// FromMsgpack reads a trace from its MessagePack file form.
func FromMsgpack(r io.Reader) (*trace.Trace, error) {
	var tf traceFile
	if err := msgpack.NewDecoder(r).Decode(&tf); err != nil {
		return nil, fmt.Errorf("decoding trace file: %w", err)
	}
	if tf.Version != traceFileVersion {
		return nil, fmt.Errorf("unsupported trace file version %d", tf.Version)
	}

	samples := make([]trace.Sample, 0, len(tf.Samples))
	for _, fs := range tf.Samples {
		s := trace.Sample{Time: fs.T}
		if fs.Glucose == nil {
			s.Missing = true
		} else {
			s.Value = *fs.Glucose
		}
		samples = append(samples, s)
	}
	return trace.NewFiltered(samples), nil
}

// ToMsgpack writes tr in its MessagePack file form.
func ToMsgpack(w io.Writer, tr *trace.Trace) error {
	tf := traceFile{Version: traceFileVersion}
	for _, s := range tr.Samples() {
		fs := fileSample{T: s.Time}
		if !s.Missing {
			v := s.Value
			fs.Glucose = &v
		}
		tf.Samples = append(tf.Samples, fs)
	}
	return msgpack.NewEncoder(w).Encode(tf)
}

// FromXDrip reads a trace from an xDrip+ SQLite export. Timestamps are
// stored as Unix milliseconds; readings at or below zero mark sensor
// dropouts and load as missing.
func FromXDrip(path string) (*trace.Trace, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT timestamp, calculated_value FROM BgReadings ORDER BY timestamp`)
	if err != nil {
		return nil, fmt.Errorf("querying BgReadings: %w", err)
	}
	defer rows.Close()

	var samples []trace.Sample
	for rows.Next() {
		var ms int64
		var value float64
		if err := rows.Scan(&ms, &value); err != nil {
			return nil, fmt.Errorf("scanning BgReadings row: %w", err)
		}
		s := trace.Sample{Time: time.UnixMilli(ms).UTC()}
		if value <= 0 || math.IsNaN(value) {
			s.Missing = true
		} else {
			s.Value = value
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading BgReadings rows: %w", err)
	}
	return trace.NewFiltered(samples), nil
}

// Package dataset reads delimited text files into observations.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arloliu/hierfit/internal/options"
	"github.com/arloliu/hierfit/observation"
)

// ErrMissingColumn is returned when a mapped column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

// Columns maps header names onto observation fields.
type Columns struct {
	Group     string
	Predictor string
	Response  string
	// Row is optional. When empty, rows are numbered by record position from 1.
	Row string
}

// Config holds reader settings.
type Config struct {
	Comma            rune
	SkipMissing      bool
	OptionalResponse bool
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithDelimiter sets the field delimiter.
func WithDelimiter(comma rune) Option {
	return options.New(func(cfg *Config) error {
		if comma == 0 || comma == '"' || comma == '\r' || comma == '\n' {
			return fmt.Errorf("invalid delimiter %q", comma)
		}
		cfg.Comma = comma

		return nil
	})
}

// WithSkipMissing drops records whose mapped fields are empty or "NA" instead
// of failing. Skipped records still consume a row number.
func WithSkipMissing(skip bool) Option {
	return options.NoError(func(cfg *Config) {
		cfg.SkipMissing = skip
	})
}

// WithOptionalResponse allows the response column to be absent, as for rows
// that are only projected. Responses then read as zero.
func WithOptionalResponse(optional bool) Option {
	return options.NoError(func(cfg *Config) {
		cfg.OptionalResponse = optional
	})
}

// Result is the outcome of a read.
type Result struct {
	// Observations holds one entry per accepted record. Payload is a
	// map[string]string of the unmapped columns.
	Observations []observation.Observation
	// PayloadColumns lists the unmapped columns in header order.
	PayloadColumns []string
	// Skipped counts records dropped by WithSkipMissing.
	Skipped int
}

// Read parses a header line followed by records from r.
//
// Values are not range checked here; observation.NewSet validates domains.
func Read(r io.Reader, cols Columns, opts ...Option) (*Result, error) {
	cfg := Config{Comma: ','}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.Comma = cfg.Comma
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}

	idx, err := resolve(names, cols, cfg.OptionalResponse)
	if err != nil {
		return nil, err
	}

	res := &Result{PayloadColumns: idx.payloadColumns()}
	for pos := 1; ; pos++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", pos, err)
		}

		obs, err := idx.parse(rec, pos)
		if err != nil {
			if cfg.SkipMissing && errors.Is(err, errMissingValue) {
				res.Skipped++
				continue
			}

			return nil, err
		}
		res.Observations = append(res.Observations, obs)
	}

	return res, nil
}

// ReadFile reads the file at path. See Read.
func ReadFile(path string, cols Columns, opts ...Option) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, cols, opts...)
}

var errMissingValue = errors.New("missing value")

type index struct {
	names                           []string
	group, predictor, response, row int
}

func resolve(names []string, cols Columns, optionalResponse bool) (index, error) {
	idx := index{names: names, group: -1, predictor: -1, response: -1, row: -1}
	find := func(name string) int {
		for i, n := range names {
			if n == name {
				return i
			}
		}

		return -1
	}

	var missing []string
	lookup := func(name string, dst *int, required bool) {
		if name == "" {
			return
		}
		*dst = find(name)
		if *dst < 0 && required {
			missing = append(missing, name)
		}
	}
	lookup(cols.Group, &idx.group, true)
	lookup(cols.Predictor, &idx.predictor, true)
	lookup(cols.Response, &idx.response, !optionalResponse)
	lookup(cols.Row, &idx.row, true)
	if cols.Group == "" || cols.Predictor == "" {
		return index{}, fmt.Errorf("%w: group and predictor columns must be named", ErrMissingColumn)
	}
	if len(missing) > 0 {
		return index{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	return idx, nil
}

func (idx index) mapped(i int) bool {
	return i == idx.group || i == idx.predictor || i == idx.response || i == idx.row
}

func (idx index) payloadColumns() []string {
	var out []string
	for i, n := range idx.names {
		if !idx.mapped(i) {
			out = append(out, n)
		}
	}

	return out
}

func (idx index) parse(rec []string, pos int) (observation.Observation, error) {
	field := func(i int) (string, error) {
		v := strings.TrimSpace(rec[i])
		if v == "" || v == "NA" {
			return "", fmt.Errorf("record %d: column %s: %w", pos, idx.names[i], errMissingValue)
		}

		return v, nil
	}
	number := func(i int) (float64, error) {
		s, err := field(i)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("record %d: column %s: %w", pos, idx.names[i], err)
		}

		return v, nil
	}

	obs := observation.Observation{Row: pos}
	var err error

	if obs.Group, err = field(idx.group); err != nil {
		return obs, err
	}
	if obs.Predictor, err = number(idx.predictor); err != nil {
		return obs, err
	}
	if idx.response >= 0 {
		if obs.Response, err = number(idx.response); err != nil {
			return obs, err
		}
	}
	if idx.row >= 0 {
		s, err := field(idx.row)
		if err != nil {
			return obs, err
		}
		if obs.Row, err = strconv.Atoi(s); err != nil {
			return obs, fmt.Errorf("record %d: column %s: %w", pos, idx.names[idx.row], err)
		}
	}

	payload := make(map[string]string, len(rec))
	for i, v := range rec {
		if idx.mapped(i) {
			continue
		}
		payload[idx.names[i]] = v
	}
	obs.Payload = payload

	return obs, nil
}

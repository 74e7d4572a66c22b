package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/hierfit"
	"github.com/arloliu/hierfit/internal/dataset"
	"github.com/arloliu/hierfit/posterior"
	"github.com/arloliu/hierfit/summary"
)

// Band output formats.
const (
	outputCSV  = "csv"
	outputJSON = "json"
	outputYAML = "yaml"
)

// bandRecord is the serialized form of a summary.Band.
type bandRecord struct {
	Key    string  `json:"key" yaml:"key"`
	Row    int     `json:"row,omitempty" yaml:"row,omitempty"`
	Group  string  `json:"group" yaml:"group"`
	N      int     `json:"n" yaml:"n"`
	Lower  float64 `json:"lower" yaml:"lower"`
	Median float64 `json:"median" yaml:"median"`
	Upper  float64 `json:"upper" yaml:"upper"`
	Width  float64 `json:"width" yaml:"width"`
	// Payload holds the row's passthrough columns when requested.
	Payload map[string]string `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// rowPayload carries the passthrough columns of the projected rows.
type rowPayload struct {
	columns []string
	rows    map[int]map[string]string
}

func newRowPayload(data *dataset.Result) *rowPayload {
	p := &rowPayload{columns: data.PayloadColumns, rows: make(map[int]map[string]string, len(data.Observations))}
	for _, o := range data.Observations {
		if m, ok := o.Payload.(map[string]string); ok {
			p.rows[o.Row] = m
		}
	}

	return p
}

func newProjectCmd(a *app) *cobra.Command {
	var (
		tracePath string
		dataPath  string
		output    string
		payload   bool
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project a trace archive onto rows and print quantile bands",
		Example: `  hierfit project --trace trees.trace --data new.csv
  hierfit project --trace trees.trace --data new.csv --mode predicted --by group --output json
  hierfit project --trace trees.trace --data new.csv --payload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runProject(cmd.OutOrStdout(), tracePath, dataPath, output, payload)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&tracePath, "trace", "", "trace archive written by fit")
	flags.StringVar(&dataPath, "data", "", "CSV file of rows to project; the response column is optional")
	flags.StringVarP(&output, "output", "o", outputCSV, "output format: csv, json, yaml")
	flags.BoolVar(&payload, "payload", false, "append each row's unmapped CSV columns to row bands (--by row only)")
	flags.String("mode", "", "projection mode: fitted, predicted")
	flags.String("by", "", "summarize by: row, group")
	flags.Int("max-draws", 0, "project a subsample of at most this many draws (0: all)")
	flags.Uint64("projection-seed", 0, "seed for draw subsampling and predictive noise")
	flags.Float64("width", 0, "central interval width in (0, 1)")
	_ = cmd.MarkFlagRequired("trace")
	_ = cmd.MarkFlagRequired("data")

	a.bind(flags, "project.mode", "mode")
	a.bind(flags, "project.by", "by")
	a.bind(flags, "project.max_draws", "max-draws")
	a.bind(flags, "project.seed", "projection-seed")
	a.bind(flags, "project.width", "width")

	return cmd
}

func (a *app) runProject(w io.Writer, tracePath, dataPath, output string, withPayload bool) error {
	switch output {
	case outputCSV, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
	cfg := a.cfg.Project
	if withPayload && cfg.By == "group" {
		return errors.New("--payload needs row bands, not --by group")
	}

	f, err := os.Open(tracePath)
	if err != nil {
		return err
	}
	table, err := hierfit.LoadTrace(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("load %s: %w", tracePath, err)
	}

	data, err := a.readData(dataPath, dataset.WithOptionalResponse(true))
	if err != nil {
		return err
	}

	values, err := hierfit.Project(table, data.Observations, cfg.ProjectMode(),
		posterior.WithMaxDraws(cfg.MaxDraws), posterior.WithSeed(cfg.Seed))
	if err != nil {
		return err
	}

	unseen := make(map[int]struct{})
	for _, v := range values {
		if v.PopulationOnly {
			unseen[v.Row] = struct{}{}
		}
	}
	a.log.Info("rows projected",
		zap.Int("rows", len(data.Observations)),
		zap.Int("population_only_rows", len(unseen)),
		zap.Int("values", len(values)),
		zap.Stringer("mode", cfg.ProjectMode()))

	by := hierfit.ByRow
	if cfg.By == "group" {
		by = hierfit.ByGroup
	}
	bands, err := hierfit.Bands(values, by, summary.WithWidth(cfg.Width))
	if err != nil {
		return err
	}

	var payload *rowPayload
	if withPayload {
		payload = newRowPayload(data)
	}

	return writeBands(w, bands, output, payload)
}

// writeBands renders bands in the given format. A non-nil payload adds the
// passthrough columns of each row band.
func writeBands(w io.Writer, bands []summary.Band, output string, payload *rowPayload) error {
	records := make([]bandRecord, len(bands))
	for i, b := range bands {
		records[i] = bandRecord{
			Key: b.Key, Row: b.Row, Group: b.Group, N: b.N,
			Lower: b.Lower, Median: b.Median, Upper: b.Upper, Width: b.Width,
		}
		if payload != nil {
			records[i].Payload = payload.rows[b.Row]
		}
	}

	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	default:
		cw := csv.NewWriter(w)
		head := []string{"key", "row", "group", "n", "lower", "median", "upper", "width"}
		if payload != nil {
			head = append(head, payload.columns...)
		}
		_ = cw.Write(head)
		f := func(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
		for _, r := range records {
			rec := []string{
				r.Key, strconv.Itoa(r.Row), r.Group, strconv.Itoa(r.N),
				f(r.Lower), f(r.Median), f(r.Upper), f(r.Width),
			}
			if payload != nil {
				for _, col := range payload.columns {
					rec = append(rec, r.Payload[col])
				}
			}
			_ = cw.Write(rec)
		}
		cw.Flush()
		return cw.Error()
	}
}

package summary

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/internal/options"
	"github.com/arloliu/hierfit/internal/pool"
	"github.com/arloliu/hierfit/posterior"
)

const (
	// DefaultWidth is the default central interval width.
	DefaultWidth = 0.95
	// MinDraws is the smallest number of values a key can be summarized from.
	MinDraws = 2
)

// Band is the quantile summary of one key.
type Band struct {
	// Key is the row number (ByRow) or group label (ByGroup).
	Key string
	// Row is the observation row for row bands, 0 for group bands.
	Row int
	// Group is the group label.
	Group string
	// N is the number of values summarized.
	N int
	// Median is the 0.5 quantile.
	Median float64
	// Lower is the (1-Width)/2 quantile.
	Lower float64
	// Upper is the (1+Width)/2 quantile.
	Upper float64
	// Width is the central interval width.
	Width float64
}

// Config holds reduction settings.
type Config struct {
	Width float64
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithWidth sets the central interval width, in (0, 1).
func WithWidth(width float64) Option {
	return options.New(func(cfg *Config) error {
		if !(width > 0 && width < 1) {
			return fmt.Errorf("%w: %g not in (0, 1)", errs.ErrInvalidInterval, width)
		}
		cfg.Width = width

		return nil
	})
}

func newConfig(opts []Option) (Config, error) {
	cfg := Config{Width: DefaultWidth}
	if err := options.Apply(&cfg, opts...); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Reduce summarizes values under key.
//
// Parameters:
//   - key: Band key
//   - values: The values; not modified
//   - opts: WithWidth
//
// Returns:
//   - Band: The summary; Lower <= Median <= Upper, all within [min, max]
//   - error: errs.ErrInsufficientDraws for fewer than MinDraws values,
//     errs.ErrInvalidInterval for a bad width, errs.ErrInvalidPayload for
//     non-finite values
func Reduce(key string, values []float64, opts ...Option) (Band, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return Band{}, err
	}

	return reduce(key, values, cfg.Width)
}

func reduce(key string, values []float64, width float64) (Band, error) {
	if len(values) < MinDraws {
		return Band{}, fmt.Errorf("%w: key %q has %d values, need %d",
			errs.ErrInsufficientDraws, key, len(values), MinDraws)
	}

	sorted, release := pool.GetFloat64Slice(len(values))
	defer release()
	copy(sorted, values)
	for _, v := range sorted {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Band{}, fmt.Errorf("%w: key %q has non-finite value %g", errs.ErrInvalidPayload, key, v)
		}
	}
	slices.Sort(sorted)

	tail := (1 - width) / 2

	return Band{
		Key:    key,
		N:      len(sorted),
		Median: Quantile(sorted, 0.5),
		Lower:  Quantile(sorted, tail),
		Upper:  Quantile(sorted, 1-tail),
		Width:  width,
	}, nil
}

// ByRow summarizes projected values per observation row, in order of first
// appearance.
func ByRow(values []posterior.ProjectedValue, opts ...Option) ([]Band, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	var (
		order  []int
		groups = make(map[int]string)
		bucket = make(map[int][]float64)
	)
	for _, v := range values {
		if _, ok := bucket[v.Row]; !ok {
			order = append(order, v.Row)
			groups[v.Row] = v.Group
		}
		bucket[v.Row] = append(bucket[v.Row], v.Value)
	}

	bands := make([]Band, 0, len(order))
	for _, row := range order {
		b, err := reduce(strconv.Itoa(row), bucket[row], cfg.Width)
		if err != nil {
			return nil, err
		}
		b.Row = row
		b.Group = groups[row]
		bands = append(bands, b)
	}

	return bands, nil
}

// ByGroup summarizes projected values per group, pooling every row and draw of
// the group, in order of first appearance.
func ByGroup(values []posterior.ProjectedValue, opts ...Option) ([]Band, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	var order []string
	bucket := make(map[string][]float64)
	for _, v := range values {
		if _, ok := bucket[v.Group]; !ok {
			order = append(order, v.Group)
		}
		bucket[v.Group] = append(bucket[v.Group], v.Value)
	}

	bands := make([]Band, 0, len(order))
	for _, g := range order {
		b, err := reduce(g, bucket[g], cfg.Width)
		if err != nil {
			return nil, err
		}
		b.Group = g
		bands = append(bands, b)
	}

	return bands, nil
}

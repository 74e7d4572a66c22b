package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/hierfit"
	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/internal/metrics"
	"github.com/arloliu/hierfit/observation"
	"github.com/arloliu/hierfit/sampler"
	"github.com/arloliu/hierfit/trace"
)

func newFitCmd(a *app) *cobra.Command {
	var (
		dataPath    string
		outPath     string
		metricsPath string
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Sample the posterior of a model and write a trace archive",
		Example: `  hierfit fit --config trees.yaml --data trees.csv --out trees.trace
  hierfit fit --config trees.yaml --data trees.csv --out trees.trace --chains 8 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runFit(cmd, dataPath, outPath, metricsPath, strict)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dataPath, "data", "", "CSV file of observations")
	flags.StringVar(&outPath, "out", "", "trace archive to write")
	flags.StringVar(&metricsPath, "metrics-file", "", "write Prometheus metrics of the run to this file")
	flags.BoolVar(&strict, "strict", false, "fail when the convergence checks do not pass")
	flags.Int("chains", 0, "number of chains")
	flags.Int("iterations", 0, "iterations per chain, warmup included")
	flags.Int("warmup", 0, "warmup iterations per chain")
	flags.Uint64("seed", 0, "master seed")
	flags.Int("parallelism", 0, "chains sampled at once (0: one per CPU)")
	flags.Int("min-distinct", 0, "drop groups with fewer distinct responses")
	flags.String("compression", "", "trace compression: none, zstd, s2, lz4")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("out")

	a.bind(flags, "sampler.chains", "chains")
	a.bind(flags, "sampler.iterations", "iterations")
	a.bind(flags, "sampler.warmup", "warmup")
	a.bind(flags, "sampler.seed", "seed")
	a.bind(flags, "sampler.parallelism", "parallelism")
	a.bind(flags, "data.min_distinct", "min-distinct")
	a.bind(flags, "trace.compression", "compression")

	return cmd
}

func (a *app) runFit(cmd *cobra.Command, dataPath, outPath, metricsPath string, strict bool) error {
	spec, err := a.cfg.Model.Spec(a.cfg.Sampler)
	if err != nil {
		return err
	}

	data, err := a.readData(dataPath)
	if err != nil {
		return err
	}
	obs := data.Observations
	if minDistinct := a.cfg.Data.MinDistinct; minDistinct > 0 {
		before := len(obs)
		obs = observation.FilterMinDistinct(obs, minDistinct)
		a.log.Info("groups filtered",
			zap.Int("min_distinct", minDistinct),
			zap.Int("dropped_observations", before-len(obs)))
	}

	runID := uuid.NewString()
	log := a.log.With(zap.String("run_id", runID))
	recorder := metrics.NewRecorder()

	opts := []sampler.Option{
		sampler.WithLogger(log),
		sampler.WithPooledInit(a.cfg.Sampler.PooledInit),
		sampler.WithProgress(recorder.Progress),
	}
	if p := a.cfg.Sampler.Parallelism; p > 0 {
		opts = append(opts, sampler.WithParallelism(p))
	}

	start := time.Now()
	res, fitErr := hierfit.Fit(cmd.Context(), obs, spec, opts...)
	elapsed := time.Since(start)

	if res != nil {
		recorder.ObserveFit(&res.Diagnostics, elapsed)
	} else {
		recorder.ObserveFit(nil, elapsed)
	}
	if metricsPath != "" {
		if err := recorder.WriteTextfile(metricsPath); err != nil {
			log.Warn("write metrics failed", zap.String("path", metricsPath), zap.Error(err))
		}
	}

	// A cancelled fit still archives the chains that completed.
	if fitErr != nil && (res == nil || !errors.Is(fitErr, errs.ErrSamplingCancelled)) {
		return fitErr
	}

	if err := a.writeTrace(log, res, outPath); err != nil {
		return err
	}
	if err := writeDiagnostics(cmd.OutOrStdout(), &res.Diagnostics); err != nil {
		return err
	}
	if fitErr != nil {
		return fitErr
	}

	if err := res.Diagnostics.Err(); err != nil {
		if strict {
			return err
		}
		log.Warn("posterior did not pass convergence checks", zap.Error(err))
	}

	return nil
}

func (a *app) writeTrace(log *zap.Logger, res *sampler.Result, path string) error {
	opts := []trace.EncoderOption{trace.WithCompression(a.cfg.Trace.CompressionType())}
	if a.cfg.Trace.BigEndian {
		opts = append(opts, trace.WithBigEndian())
	}

	data, stats, err := trace.EncodeWithStats(res.Table, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}

	log.Info("trace written",
		zap.String("path", path),
		zap.Int("draws", res.Table.Len()),
		zap.String("size", humanize.Bytes(uint64(len(data)))),
		zap.String("payload", humanize.Bytes(uint64(stats.OriginalSize))),
		zap.Stringer("compression", stats.Algorithm),
		zap.Float64("ratio", stats.CompressionRatio()))

	return nil
}

func writeDiagnostics(w io.Writer, d *sampler.Diagnostics) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "parameter\tmean\tsd\trhat\tess\t")
	for _, p := range d.Parameters {
		fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.3f\t%.0f\t\n", p.Name, p.Mean, p.SD, p.RHat, p.ESS)
	}
	fmt.Fprintf(tw, "\nchains: %d  divergences: %d  max depth hits: %d  converged: %t\n",
		d.Chains, d.Divergences, d.MaxTreeDepthHits, d.Converged)

	return tw.Flush()
}

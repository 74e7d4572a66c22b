package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/hierfit/format"
	"github.com/arloliu/hierfit/model"
	"github.com/arloliu/hierfit/posterior"
)

const treeConfig = `
log:
  level: debug
data:
  group_column: plot
  predictor_column: dbh
  response_column: height
  min_distinct: 3
model:
  preset: michailoff
  parameters:
    - name: a
      prior: normal(3, 1)
      group: true
      group_prior: normal(0, 0.5)
    - name: b
      prior: normal(-10, 5)
  sigma_prior: exponential(1)
sampler:
  chains: 2
  iterations: 600
  warmup: 300
  seed: 42
trace:
  compression: lz4
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hierfit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, model.DefaultChains, cfg.Sampler.Chains)
	require.Equal(t, model.DefaultWarmup, cfg.Sampler.Warmup)
	require.True(t, cfg.Sampler.PooledInit)
	require.Equal(t, format.CompressionZstd, cfg.Trace.CompressionType())
	require.Equal(t, posterior.ModeFitted, cfg.Project.ProjectMode())
	require.InDelta(t, 0.95, cfg.Project.Width, 0)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(NewViper(), writeConfig(t, treeConfig))
	require.NoError(t, err)

	require.Equal(t, "plot", cfg.Data.GroupColumn)
	require.Equal(t, 3, cfg.Data.MinDistinct)
	require.Equal(t, 2, cfg.Sampler.Chains)
	require.Equal(t, uint64(42), cfg.Sampler.Seed)
	require.Equal(t, format.CompressionLZ4, cfg.Trace.CompressionType())

	spec, err := cfg.Model.Spec(cfg.Sampler)
	require.NoError(t, err)
	require.Equal(t, "exp(a + b/x)", spec.MeanFunction)
	require.Equal(t, []model.Effect{{Name: "a", Group: true}, {Name: "b"}}, spec.Parameters)
	require.Len(t, spec.Priors, 4)
	require.Equal(t, 600, spec.Control.Iterations)

	m, err := spec.Compile()
	require.NoError(t, err)
	require.Equal(t, model.Exponential(1), m.SigmaPrior())
	require.Equal(t, model.Normal(0, 0.5), m.Param(0).GroupPrior)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HIERFIT_SAMPLER_CHAINS", "6")
	t.Setenv("HIERFIT_PROJECT_MODE", "predicted")

	cfg, err := Load(NewViper(), writeConfig(t, treeConfig))
	require.NoError(t, err)
	require.Equal(t, 6, cfg.Sampler.Chains)
	require.Equal(t, posterior.ModePredicted, cfg.Project.ProjectMode())
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"warmup not below iterations", map[string]string{"HIERFIT_SAMPLER_WARMUP": "700"}, "Sampler.Warmup"},
		{"unknown compression", map[string]string{"HIERFIT_TRACE_COMPRESSION": "gzip"}, "Trace.Compression"},
		{"bad level", map[string]string{"HIERFIT_LOG_LEVEL": "loud"}, "Log.Level"},
		{"width out of range", map[string]string{"HIERFIT_PROJECT_WIDTH": "1.5"}, "Project.Width"},
		{"zero chains", map[string]string{"HIERFIT_SAMPLER_CHAINS": "0"}, "Sampler.Chains"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(NewViper(), writeConfig(t, treeConfig))
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestModelSpecInvalid(t *testing.T) {
	sampler := SamplerConfig{Chains: 1, Iterations: 10}

	tests := []struct {
		name  string
		cfg   ModelConfig
		field string
	}{
		{
			name:  "no parameters",
			cfg:   ModelConfig{Preset: "michailoff"},
			field: "Parameters",
		},
		{
			name: "bad prior",
			cfg: ModelConfig{
				Preset:     "michailoff",
				Parameters: []ParameterConfig{{Name: "a", Prior: "cauchy(0, 1)"}},
			},
			field: "Parameters[0].Prior",
		},
		{
			name: "unknown preset",
			cfg: ModelConfig{
				Preset:     "gompertz",
				Parameters: []ParameterConfig{{Name: "a", Prior: "normal(0, 1)"}},
			},
			field: "Preset",
		},
		{
			name:  "no mean function",
			cfg:   ModelConfig{Parameters: []ParameterConfig{{Name: "a", Prior: "normal(0, 1)"}}},
			field: "MeanFunction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Spec(sampler)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestSamplerZeroDisables(t *testing.T) {
	v := NewViper()
	v.Set("sampler.min_ess", 0)
	v.Set("sampler.max_numerical_retries", 0)
	cfg, err := Load(v, writeConfig(t, treeConfig))
	require.NoError(t, err)

	spec, err := cfg.Model.Spec(cfg.Sampler)
	require.NoError(t, err)
	m, err := spec.Compile()
	require.NoError(t, err)
	require.InDelta(t, model.NoESSCheck, m.Control().MinESS, 0)
	require.Equal(t, model.NoNumericalRetries, m.Control().MaxNumericalRetries)

	cfg, err = Load(NewViper(), writeConfig(t, treeConfig))
	require.NoError(t, err)
	spec, err = cfg.Model.Spec(cfg.Sampler)
	require.NoError(t, err)
	require.InDelta(t, model.DefaultMinESS, spec.Control.MinESS, 0)
	require.Equal(t, model.DefaultMaxNumericalRetries, spec.Control.MaxNumericalRetries)
}

func TestModelSpecCustomMean(t *testing.T) {
	cfg := ModelConfig{
		MeanFunction: "a * pow(d, b)",
		Predictor:    "d",
		Parameters: []ParameterConfig{
			{Name: "a", Prior: "normal(1, 1)"},
			{Name: "b", Prior: "student_t(3, 0, 1)", Group: true},
		},
	}

	spec, err := cfg.Spec(SamplerConfig{})
	require.NoError(t, err)
	require.Equal(t, "a * pow(d, b)", spec.MeanFunction)

	m, err := spec.Compile()
	require.NoError(t, err)
	require.Equal(t, model.DefaultScalePrior(), m.Param(1).GroupPrior)
}

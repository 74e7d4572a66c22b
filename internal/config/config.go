// Package config loads hierfit command settings from a YAML file, HIERFIT_*
// environment variables and command-line flags.
//
// Keys are dotted paths ("sampler.chains"); the environment form replaces dots
// with underscores and adds the prefix (HIERFIT_SAMPLER_CHAINS). Flags bound to
// a key win over the environment, which wins over the file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/arloliu/hierfit/format"
	"github.com/arloliu/hierfit/model"
	"github.com/arloliu/hierfit/posterior"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "HIERFIT"

// Config is the complete command configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Data    DataConfig    `mapstructure:"data"`
	Model   ModelConfig   `mapstructure:"model" validate:"-"`
	Sampler SamplerConfig `mapstructure:"sampler"`
	Trace   TraceConfig   `mapstructure:"trace"`
	Project ProjectConfig `mapstructure:"project"`
}

// LogConfig selects the logger level and encoder.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// DataConfig maps CSV columns onto observations.
type DataConfig struct {
	GroupColumn     string `mapstructure:"group_column" validate:"required"`
	PredictorColumn string `mapstructure:"predictor_column" validate:"required"`
	ResponseColumn  string `mapstructure:"response_column" validate:"required"`
	// RowColumn is optional; rows are numbered from 1 when empty.
	RowColumn string `mapstructure:"row_column"`
	Delimiter string `mapstructure:"delimiter" validate:"len=1"`
	// MinDistinct drops groups with fewer distinct responses before fitting.
	// Zero disables the filter.
	MinDistinct int `mapstructure:"min_distinct" validate:"gte=0"`
}

// ParameterConfig declares one mean-function parameter.
type ParameterConfig struct {
	Name       string `mapstructure:"name" validate:"required"`
	Prior      string `mapstructure:"prior" validate:"required,prior"`
	Group      bool   `mapstructure:"group"`
	GroupPrior string `mapstructure:"group_prior" validate:"omitempty,prior"`
}

// ModelConfig describes the model to fit. Preset and MeanFunction are
// alternatives; MeanFunction wins when both are set.
type ModelConfig struct {
	Preset       string            `mapstructure:"preset" validate:"omitempty,preset"`
	MeanFunction string            `mapstructure:"mean_function"`
	Predictor    string            `mapstructure:"predictor"`
	Parameters   []ParameterConfig `mapstructure:"parameters" validate:"required,min=1,dive"`
	SigmaPrior   string            `mapstructure:"sigma_prior" validate:"omitempty,prior"`
}

// SamplerConfig holds sampler control and scheduling settings.
type SamplerConfig struct {
	Chains            int     `mapstructure:"chains" validate:"gte=1"`
	Iterations        int     `mapstructure:"iterations" validate:"gte=1"`
	Warmup            int     `mapstructure:"warmup" validate:"gte=0,ltfield=Iterations"`
	TargetAccept      float64 `mapstructure:"target_accept" validate:"gt=0,lt=1"`
	Seed              uint64  `mapstructure:"seed"`
	MaxTreeDepth      int     `mapstructure:"max_tree_depth" validate:"gte=1,lte=30"`
	MinGroupResponses int     `mapstructure:"min_group_responses" validate:"gte=1"`
	RHatThreshold     float64 `mapstructure:"rhat_threshold" validate:"gt=1"`
	// MinESS 0 leaves effective sample size out of convergence.
	MinESS float64 `mapstructure:"min_ess" validate:"gte=0"`
	// MaxNumericalRetries 0 aborts a chain at its first stuck non-finite transition.
	MaxNumericalRetries int `mapstructure:"max_numerical_retries" validate:"gte=0"`
	// Parallelism bounds concurrently running chains; 0 means one per CPU.
	Parallelism int  `mapstructure:"parallelism" validate:"gte=0"`
	PooledInit  bool `mapstructure:"pooled_init"`
}

// TraceConfig holds trace archive encoding settings.
type TraceConfig struct {
	Compression string `mapstructure:"compression" validate:"compression"`
	BigEndian   bool   `mapstructure:"big_endian"`
}

// ProjectConfig holds projection and summary settings.
type ProjectConfig struct {
	Mode     string  `mapstructure:"mode" validate:"oneof=fitted predicted"`
	By       string  `mapstructure:"by" validate:"oneof=row group"`
	MaxDraws int     `mapstructure:"max_draws" validate:"gte=0"`
	Seed     uint64  `mapstructure:"seed"`
	Width    float64 `mapstructure:"width" validate:"gt=0,lt=1"`
}

// NewViper returns a viper instance with defaults and environment binding set
// up. Callers bind flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func setDefaults(v *viper.Viper) {
	control := model.DefaultControl()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("data.group_column", "group")
	v.SetDefault("data.predictor_column", "x")
	v.SetDefault("data.response_column", "y")
	v.SetDefault("data.row_column", "")
	v.SetDefault("data.delimiter", ",")
	v.SetDefault("data.min_distinct", 0)

	v.SetDefault("sampler.chains", control.Chains)
	v.SetDefault("sampler.iterations", control.Iterations)
	v.SetDefault("sampler.warmup", control.Warmup)
	v.SetDefault("sampler.target_accept", control.TargetAccept)
	v.SetDefault("sampler.seed", 0)
	v.SetDefault("sampler.max_tree_depth", control.MaxTreeDepth)
	v.SetDefault("sampler.min_group_responses", control.MinGroupResponses)
	v.SetDefault("sampler.rhat_threshold", control.RHatThreshold)
	v.SetDefault("sampler.min_ess", control.MinESS)
	v.SetDefault("sampler.max_numerical_retries", control.MaxNumericalRetries)
	v.SetDefault("sampler.parallelism", 0)
	v.SetDefault("sampler.pooled_init", true)

	v.SetDefault("trace.compression", "zstd")
	v.SetDefault("trace.big_endian", false)

	v.SetDefault("project.mode", "fitted")
	v.SetDefault("project.by", "row")
	v.SetDefault("project.max_draws", 0)
	v.SetDefault("project.seed", 0)
	v.SetDefault("project.width", 0.95)
}

// Load reads the optional YAML file at path into v and decodes and validates
// the result. The model section is validated when it is converted with
// ModelConfig.Spec, since only fitting needs it.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Spec converts the model section into a model specification with control
// settings taken from s.
func (c ModelConfig) Spec(s SamplerConfig) (*model.Spec, error) {
	if err := Validate(&c); err != nil {
		return nil, err
	}

	mean := c.MeanFunction
	if mean == "" {
		if c.Preset == "" {
			return nil, ValidationErrors{{Field: "MeanFunction", Message: "is required when Preset is empty"}}
		}
		mean = model.PresetFromString(c.Preset).Expression()
	}

	spec := &model.Spec{
		MeanFunction: mean,
		Predictor:    c.Predictor,
		Control: model.Control{
			Chains:              s.Chains,
			Iterations:          s.Iterations,
			Warmup:              s.Warmup,
			TargetAccept:        s.TargetAccept,
			Seed:                s.Seed,
			MaxTreeDepth:        s.MaxTreeDepth,
			MinGroupResponses:   s.MinGroupResponses,
			RHatThreshold:       s.RHatThreshold,
			MinESS:              s.MinESS,
			MaxNumericalRetries: s.MaxNumericalRetries,
		},
	}
	// zero switches these off here, while model.Control reads zero as unset
	if s.MinESS == 0 {
		spec.Control.MinESS = model.NoESSCheck
	}
	if s.MaxNumericalRetries == 0 {
		spec.Control.MaxNumericalRetries = model.NoNumericalRetries
	}

	var errList []error
	addPrior := func(target, src string) {
		prior, err := model.ParsePrior(src)
		if err != nil {
			errList = append(errList, fmt.Errorf("%s: %w", target, err))
			return
		}
		spec.Priors = append(spec.Priors, model.PriorSpec{Target: target, Prior: prior})
	}

	for _, p := range c.Parameters {
		spec.Parameters = append(spec.Parameters, model.Effect{Name: p.Name, Group: p.Group})
		addPrior(p.Name, p.Prior)
		if p.GroupPrior != "" {
			addPrior(model.SDTarget(p.Name), p.GroupPrior)
		}
	}
	if c.SigmaPrior != "" {
		addPrior(model.SigmaTarget, c.SigmaPrior)
	}
	if err := errors.Join(errList...); err != nil {
		return nil, err
	}

	return spec, nil
}

// CompressionType returns the configured archive codec.
func (c TraceConfig) CompressionType() format.CompressionType {
	ct, _ := format.ParseCompression(c.Compression)
	return ct
}

// ProjectMode returns the configured projection mode.
func (c ProjectConfig) ProjectMode() posterior.Mode {
	mode, _ := posterior.ParseMode(c.Mode)
	return mode
}

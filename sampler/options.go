package sampler

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/arloliu/hierfit/internal/options"
)

// Progress reports one finished iteration of one chain.
type Progress struct {
	Chain     int
	Iteration int
	Warmup    bool
	StepSize  float64
}

// Config holds sampler settings that are not part of the model's Control.
type Config struct {
	// Logger receives fit and chain events. Defaults to a no-op logger.
	Logger *zap.Logger
	// Parallelism bounds the number of chains sampled at once.
	Parallelism int
	// InitRadius is the half-width of the uniform jitter used for fallback
	// initial values on the unconstrained scale.
	InitRadius float64
	// PooledInit enables starting values from a pooled least-squares fit.
	PooledInit bool
	// OnProgress, when set, is called after every iteration from the chain's
	// goroutine.
	OnProgress func(Progress)
}

// DefaultInitRadius is the fallback initialization jitter.
const DefaultInitRadius = 2.0

func defaultConfig() Config {
	return Config{
		Logger:      zap.NewNop(),
		Parallelism: runtime.GOMAXPROCS(0),
		InitRadius:  DefaultInitRadius,
		PooledInit:  true,
	}
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(cfg *Config) {
		if logger != nil {
			cfg.Logger = logger
		}
	})
}

// WithParallelism bounds the number of concurrently running chains.
func WithParallelism(n int) Option {
	return options.New(func(cfg *Config) error {
		if n < 1 {
			return fmt.Errorf("parallelism must be >= 1, got %d", n)
		}
		cfg.Parallelism = n

		return nil
	})
}

// WithInitRadius sets the fallback initialization jitter.
func WithInitRadius(r float64) Option {
	return options.New(func(cfg *Config) error {
		if !(r > 0) {
			return fmt.Errorf("init radius must be > 0, got %g", r)
		}
		cfg.InitRadius = r

		return nil
	})
}

// WithPooledInit enables or disables pooled least-squares starting values.
func WithPooledInit(enabled bool) Option {
	return options.NoError(func(cfg *Config) {
		cfg.PooledInit = enabled
	})
}

// WithProgress registers an iteration callback. It runs on the sampling
// goroutines and must be safe for concurrent use.
func WithProgress(fn func(Progress)) Option {
	return options.NoError(func(cfg *Config) {
		cfg.OnProgress = fn
	})
}

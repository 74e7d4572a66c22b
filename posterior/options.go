package posterior

import (
	"fmt"

	"github.com/arloliu/hierfit/internal/options"
)

// ProjectConfig holds Project settings.
type ProjectConfig struct {
	// MaxDraws caps the number of draws projected; 0 projects every draw.
	MaxDraws int
	// Seed drives draw subsampling and predictive noise.
	Seed uint64
}

// ProjectOption is a functional option for ProjectConfig.
type ProjectOption = options.Option[*ProjectConfig]

// WithMaxDraws projects a uniform subsample of at most n draws, selected
// without replacement. n = 0 selects every draw.
func WithMaxDraws(n int) ProjectOption {
	return options.New(func(cfg *ProjectConfig) error {
		if n < 0 {
			return fmt.Errorf("max draws must be >= 0, got %d", n)
		}
		cfg.MaxDraws = n

		return nil
	})
}

// WithSeed sets the seed for subsampling and predictive noise.
func WithSeed(seed uint64) ProjectOption {
	return options.NoError(func(cfg *ProjectConfig) {
		cfg.Seed = seed
	})
}

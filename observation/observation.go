package observation

import (
	"fmt"
	"math"

	"github.com/arloliu/hierfit/errs"
)

// Observation is one measurement.
type Observation struct {
	// Row is the stable 1-based identifier of the observation. Zero means
	// "assign from position" when building a Set.
	Row int
	// Group is the grouping label, e.g. a plot or species.
	Group string
	// Predictor is the covariate, finite and > 0.
	Predictor float64
	// Response is the measured outcome, finite and >= 0.
	Response float64
	// Payload is caller metadata carried through untouched.
	Payload any
}

// Validate checks the field domains of o.
func (o Observation) Validate() error {
	switch {
	case o.Group == "":
		return fmt.Errorf("%w: row %d: empty group label", errs.ErrInvalidObservation, o.Row)
	case math.IsNaN(o.Predictor) || math.IsInf(o.Predictor, 0) || o.Predictor <= 0:
		return fmt.Errorf("%w: row %d: predictor must be finite and > 0, got %g",
			errs.ErrInvalidObservation, o.Row, o.Predictor)
	case math.IsNaN(o.Response) || math.IsInf(o.Response, 0) || o.Response < 0:
		return fmt.Errorf("%w: row %d: response must be finite and >= 0, got %g",
			errs.ErrInvalidObservation, o.Row, o.Response)
	case o.Row < 0:
		return fmt.Errorf("%w: row %d: row must be >= 1", errs.ErrInvalidObservation, o.Row)
	}

	return nil
}

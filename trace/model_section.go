package trace

import (
	"fmt"

	"github.com/arloliu/hierfit/endian"
	"github.com/arloliu/hierfit/errs"
	"github.com/arloliu/hierfit/model"
)

// encodeModel serializes the spec and the fit-time groups.
//
// Format:
//
//	[MeanFunction][Predictor]
//	[EffectCount: uint16] ([Name][Group: uint8])...
//	[PriorCount: uint16] ([Target][Prior])...
//	[Groups: string list]
//	[Control: fixed-width fields]
func encodeModel(spec model.Spec, groups []string, engine endian.EndianEngine) ([]byte, error) {
	w := &sectionWriter{engine: engine}

	w.putString(spec.MeanFunction)
	w.putString(spec.Predictor)

	if w.putCount(len(spec.Parameters)) {
		for _, eff := range spec.Parameters {
			w.putString(eff.Name)
			var g uint8
			if eff.Group {
				g = 1
			}
			w.putUint8(g)
		}
	}
	if w.putCount(len(spec.Priors)) {
		for _, ps := range spec.Priors {
			w.putString(ps.Target)
			w.putString(ps.Prior.String())
		}
	}
	w.putStrings(groups)

	c := spec.Control
	w.putUint32(uint32(c.Chains))     //nolint: gosec
	w.putUint32(uint32(c.Iterations)) //nolint: gosec
	w.putUint32(uint32(c.Warmup))     //nolint: gosec
	w.putFloat64(c.TargetAccept)
	w.putUint64(c.Seed)
	w.putUint32(uint32(c.MaxTreeDepth))      //nolint: gosec
	w.putUint32(uint32(c.MinGroupResponses)) //nolint: gosec
	w.putFloat64(c.RHatThreshold)
	w.putFloat64(c.MinESS)
	w.putUint32(uint32(int32(c.MaxNumericalRetries))) //nolint: gosec

	if w.err != nil {
		return nil, w.err
	}

	return w.buf, nil
}

// decodeModel parses a model section.
func decodeModel(data []byte, engine endian.EndianEngine) (model.Spec, []string, error) {
	r := &sectionReader{data: data, engine: engine}

	var spec model.Spec
	spec.MeanFunction = r.readString("mean function")
	spec.Predictor = r.readString("predictor")

	n := int(r.readUint16("effect count"))
	for i := 0; i < n && r.err == nil; i++ {
		name := r.readString("effect name")
		group := r.readUint8("effect group flag")
		spec.Parameters = append(spec.Parameters, model.Effect{Name: name, Group: group != 0})
	}

	n = int(r.readUint16("prior count"))
	for i := 0; i < n && r.err == nil; i++ {
		target := r.readString("prior target")
		text := r.readString("prior")
		if r.err != nil {
			break
		}
		prior, err := model.ParsePrior(text)
		if err != nil {
			return model.Spec{}, nil, fmt.Errorf("%w: prior for %q: %w", errs.ErrInvalidPayload, target, err)
		}
		spec.Priors = append(spec.Priors, model.PriorSpec{Target: target, Prior: prior})
	}

	groups := r.readStrings("group")

	c := &spec.Control
	c.Chains = int(r.readUint32("chains"))
	c.Iterations = int(r.readUint32("iterations"))
	c.Warmup = int(r.readUint32("warmup"))
	c.TargetAccept = r.readFloat64("target accept")
	c.Seed = r.readUint64("seed")
	c.MaxTreeDepth = int(r.readUint32("max tree depth"))
	c.MinGroupResponses = int(r.readUint32("min group responses"))
	c.RHatThreshold = r.readFloat64("rhat threshold")
	c.MinESS = r.readFloat64("min ess")
	c.MaxNumericalRetries = int(int32(r.readUint32("max numerical retries"))) //nolint: gosec

	if r.err != nil {
		return model.Spec{}, nil, r.err
	}
	if r.off != len(data) {
		return model.Spec{}, nil, fmt.Errorf("%w: %d trailing bytes in model section",
			errs.ErrInvalidPayload, len(data)-r.off)
	}

	return spec, groups, nil
}

package model

import (
	"errors"
	"fmt"
	"math"
)

// Registry errors.
var (
	// ErrModelNotRegistered indicates the requested model name is not in
	// the registry's configured set.
	ErrModelNotRegistered = errors.New("model not registered")

	// ErrUnknownKind indicates an artifact declares a model kind the
	// registry cannot instantiate.
	ErrUnknownKind = errors.New("unknown model kind")
)

// Handle is one loaded, ready-to-use prediction model.
type Handle interface {
	// Kind identifies the model family ("linear").
	Kind() string

	// Predict runs inference on a feature window of pastSteps rows and
	// returns the raw (still scaled) model output.
	Predict(window [][]float64) ([]float64, error)

	// InverseOutput maps raw model output back to the demand domain.
	InverseOutput(values []float64) []float64
}

// PostProcess converts raw model output into final demand counts:
// inverse the output scaling, clamp negatives to zero, round up.
func PostProcess(handle Handle, raw []float64) []int {
	values := handle.InverseOutput(raw)
	out := make([]int, len(values))
	for i, v := range values {
		if v < 0 {
			v = 0
		}
		out[i] = int(math.Ceil(v))
	}
	return out
}

// artifact is the on-disk JSON form of a model.
type artifact struct {
	Kind      string      `json:"kind"`
	Weights   [][]float64 `json:"weights"`
	Intercept []float64   `json:"intercept"`
	ScalerX   Scaler      `json:"scaler_x"`
	ScalerY   Scaler      `json:"scaler_y"`
}

// newHandle instantiates the right model kind for an artifact.
func newHandle(a *artifact) (Handle, error) {
	switch a.Kind {
	case kindLinear:
		return newLinearModel(a)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

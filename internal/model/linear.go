package model

import (
	"fmt"
)

const kindLinear = "linear"

// linearModel is a flat linear regressor over the scaled, flattened
// feature window. Each weight row produces one output value.
type linearModel struct {
	weights   [][]float64
	intercept []float64
	scalerX   Scaler
	scalerY   Scaler
}

var _ Handle = (*linearModel)(nil)

func newLinearModel(a *artifact) (*linearModel, error) {
	if len(a.Weights) == 0 {
		return nil, fmt.Errorf("linear artifact has no weights")
	}
	if len(a.Weights) != len(a.Intercept) {
		return nil, fmt.Errorf("linear artifact weight rows (%d) do not match intercepts (%d)",
			len(a.Weights), len(a.Intercept))
	}
	return &linearModel{
		weights:   a.Weights,
		intercept: a.Intercept,
		scalerX:   a.ScalerX,
		scalerY:   a.ScalerY,
	}, nil
}

// Kind identifies the model family.
func (m *linearModel) Kind() string { return kindLinear }

// Predict scales each window row, flattens the window, and computes one
// dot product per output.
func (m *linearModel) Predict(window [][]float64) ([]float64, error) {
	if len(window) == 0 {
		return nil, fmt.Errorf("empty feature window")
	}

	var flat []float64
	for _, row := range window {
		flat = append(flat, m.scalerX.Transform(row)...)
	}

	out := make([]float64, len(m.weights))
	for i, weights := range m.weights {
		if len(weights) != len(flat) {
			return nil, fmt.Errorf("feature window size %d does not match model input size %d",
				len(flat), len(weights))
		}
		sum := m.intercept[i]
		for j, w := range weights {
			sum += w * flat[j]
		}
		out[i] = sum
	}
	return out, nil
}

// InverseOutput undoes the output scaling.
func (m *linearModel) InverseOutput(values []float64) []float64 {
	return m.scalerY.Inverse(values)
}

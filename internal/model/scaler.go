// Package model loads prediction model artifacts from disk and serves
// them to workers through a reloadable registry.
package model

// Scaler applies standard (mean/std) feature scaling. Means and stds
// are positional; a zero std leaves the value unscaled.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Transform scales one feature row in place-order: (x - mean) / std.
// Values beyond the scaler's length pass through unchanged.
func (s *Scaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		if i >= len(s.Mean) || i >= len(s.Std) || s.Std[i] == 0 {
			out[i] = v
			continue
		}
		out[i] = (v - s.Mean[i]) / s.Std[i]
	}
	return out
}

// Inverse undoes the scaling: x * std + mean.
func (s *Scaler) Inverse(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i >= len(s.Mean) || i >= len(s.Std) || s.Std[i] == 0 {
			out[i] = v
			continue
		}
		out[i] = v*s.Std[i] + s.Mean[i]
	}
	return out
}

package model

import (
	"context"
	"fmt"
	"math"

	"github.com/tendant/agri-advisor/pkg/advisor"
)

// Linear is a linear regressor: intercept + Σ coefficient·feature.
type Linear struct {
	intercept    float64
	coefficients []float64
}

// NewLinear creates a linear regressor. The coefficient slice is copied.
func NewLinear(intercept float64, coefficients []float64) *Linear {
	return &Linear{
		intercept:    intercept,
		coefficients: append([]float64(nil), coefficients...),
	}
}

// Predict implements advisor.Predictor.
func (m *Linear) Predict(ctx context.Context, features advisor.FeatureVector) (advisor.Prediction, error) {
	if len(features) != len(m.coefficients) {
		return advisor.Prediction{}, fmt.Errorf("expected %d features, got %d", len(m.coefficients), len(features))
	}
	v := m.intercept
	for i, c := range m.coefficients {
		v += c * features[i]
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return advisor.Prediction{}, advisor.ErrNonFiniteValue
	}
	return advisor.ValuePrediction(v), nil
}

package model

import (
	"context"
	"fmt"
	"math"

	"github.com/tendant/agri-advisor/pkg/advisor"
)

// Centroid is a nearest-centroid classifier. Ties go to the class listed
// first.
type Centroid struct {
	classes []Class
	scale   *Scale
}

// NewCentroid creates a classifier from its classes and optional scaling.
func NewCentroid(classes []Class, scale *Scale) *Centroid {
	cs := make([]Class, len(classes))
	for i, c := range classes {
		cs[i] = Class{Label: c.Label, Centroid: append([]float64(nil), c.Centroid...)}
	}
	var sc *Scale
	if scale != nil {
		sc = &Scale{
			Mean: append([]float64(nil), scale.Mean...),
			Std:  append([]float64(nil), scale.Std...),
		}
	}
	return &Centroid{classes: cs, scale: sc}
}

// Predict implements advisor.Predictor.
func (m *Centroid) Predict(ctx context.Context, features advisor.FeatureVector) (advisor.Prediction, error) {
	if len(m.classes) == 0 {
		return advisor.Prediction{}, fmt.Errorf("classifier has no classes")
	}
	dim := len(m.classes[0].Centroid)
	if len(features) != dim {
		return advisor.Prediction{}, fmt.Errorf("expected %d features, got %d", dim, len(features))
	}

	x := make([]float64, dim)
	for i, f := range features {
		if m.scale != nil {
			f = (f - m.scale.Mean[i]) / m.scale.Std[i]
		}
		x[i] = f
	}

	best, bestDist := -1, math.Inf(1)
	for i, c := range m.classes {
		var d float64
		for j, v := range c.Centroid {
			diff := x[j] - v
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return advisor.Prediction{}, fmt.Errorf("no class matched")
	}
	return advisor.LabelPrediction(m.classes[best].Label), nil
}

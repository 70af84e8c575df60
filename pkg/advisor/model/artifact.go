package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/tendant/agri-advisor/pkg/advisor"
	"gopkg.in/yaml.v3"
)

// Model kinds
const (
	KindLinear   = "linear"
	KindCentroid = "centroid"
)

// Artifact is the on-disk description of a trained model.
type Artifact struct {
	Kind     string   `json:"kind" yaml:"kind"`
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`

	// linear
	Intercept    float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`

	// centroid
	Classes []Class `json:"classes,omitempty" yaml:"classes,omitempty"`
	Scale   *Scale  `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// Class is one label of a nearest-centroid classifier.
type Class struct {
	Label    string    `json:"label" yaml:"label"`
	Centroid []float64 `json:"centroid" yaml:"centroid"`
}

// Scale standardizes features before distance computation: (x-mean)/std.
type Scale struct {
	Mean []float64 `json:"mean" yaml:"mean"`
	Std  []float64 `json:"std" yaml:"std"`
}

// Decode reads an artifact document. Keys ending in .json are decoded as
// JSON, everything else as YAML.
func Decode(key string, r io.Reader) (*Artifact, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var a Artifact
	if strings.EqualFold(path.Ext(key), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("%w: %v", advisor.ErrInvalidArtifact, err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("%w: %v", advisor.ErrInvalidArtifact, err)
		}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Dimension is the feature vector length the artifact expects.
func (a *Artifact) Dimension() int {
	switch a.Kind {
	case KindLinear:
		return len(a.Coefficients)
	case KindCentroid:
		if len(a.Classes) > 0 {
			return len(a.Classes[0].Centroid)
		}
	}
	return 0
}

// Validate checks the artifact is internally consistent.
func (a *Artifact) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", advisor.ErrInvalidArtifact, fmt.Sprintf(format, args...))
	}

	switch a.Kind {
	case KindLinear:
		if len(a.Coefficients) == 0 {
			return invalid("linear model has no coefficients")
		}
	case KindCentroid:
		if len(a.Classes) == 0 {
			return invalid("centroid model has no classes")
		}
		dim := len(a.Classes[0].Centroid)
		if dim == 0 {
			return invalid("class %q has an empty centroid", a.Classes[0].Label)
		}
		for _, c := range a.Classes {
			if c.Label == "" {
				return invalid("class label is required")
			}
			if len(c.Centroid) != dim {
				return invalid("class %q centroid has %d values, want %d", c.Label, len(c.Centroid), dim)
			}
		}
		if a.Scale != nil {
			if len(a.Scale.Mean) != dim || len(a.Scale.Std) != dim {
				return invalid("scale must have %d means and stds", dim)
			}
			for i, s := range a.Scale.Std {
				if s == 0 {
					return invalid("scale std %d is zero", i)
				}
			}
		}
	case "":
		return invalid("kind is required")
	default:
		return invalid("unsupported kind %q", a.Kind)
	}

	if len(a.Features) > 0 && len(a.Features) != a.Dimension() {
		return invalid("%d feature names for %d inputs", len(a.Features), a.Dimension())
	}
	return nil
}

// Build turns the artifact into a Predictor.
func (a *Artifact) Build() (advisor.Predictor, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	switch a.Kind {
	case KindLinear:
		return NewLinear(a.Intercept, a.Coefficients), nil
	default:
		return NewCentroid(a.Classes, a.Scale), nil
	}
}

// Fits rejects an artifact trained on a different feature order than d's
// assembler produces.
func (a *Artifact) Fits(d advisor.Domain) error {
	spec, err := advisor.SpecFor(d)
	if err != nil {
		return err
	}
	want := spec.FieldNames()
	if a.Dimension() != len(want) {
		return fmt.Errorf("%w: %s model takes %d inputs, want %d", advisor.ErrInvalidArtifact, d, a.Dimension(), len(want))
	}
	if len(a.Features) == 0 {
		return nil
	}
	for i, name := range a.Features {
		if name != want[i] {
			return fmt.Errorf("%w: %s feature %d is %q, want %q", advisor.ErrInvalidArtifact, d, i, name, want[i])
		}
	}
	return nil
}

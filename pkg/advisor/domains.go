package advisor

import (
	"math"
	"strconv"
)

// Feature is one position in a model's feature vector. Categorical features
// carry the Encoding that turns the request value into its ordinal.
type Feature struct {
	Field    string
	Encoding *Encoding
}

// DomainSpec is everything that distinguishes one domain's pipeline from
// another's.
type DomainSpec struct {
	Domain Domain

	// Title and Action build user-facing messages,
	// e.g. "Crop" + "recommendation".
	Title  string
	Action string

	// Path is the HTTP route serving the domain.
	Path string

	// Required lists the fields that must be present, in reporting order.
	Required []string

	// Numeric lists the required fields that must hold numbers.
	Numeric []string

	// Features is the model's training order.
	Features []Feature

	// Shape builds the response body from the request and the prediction.
	Shape func(p Payload, pred Prediction) (any, error)
}

// FailureMessage prefixes err the way every domain reports failures,
// e.g. "Crop recommendation failed: ...".
func (s *DomainSpec) FailureMessage(err error) string {
	return s.Title + " " + s.Action + " failed: " + err.Error()
}

// UnavailableMessage is the body text for a model that did not load.
func (s *DomainSpec) UnavailableMessage() string {
	return s.Title + " model not available. Please check model file."
}

// Validate checks required-field presence (null counts as absent), then
// numeric well-formedness. The first offending field is reported.
func (s *DomainSpec) Validate(p Payload) error {
	for _, f := range s.Required {
		if !p.Has(f) {
			return MissingField(f)
		}
	}
	for _, f := range s.Numeric {
		if _, err := p.Number(f); err != nil {
			return err
		}
	}
	return nil
}

// Assemble maps p into the model's feature vector.
func (s *DomainSpec) Assemble(p Payload) (FeatureVector, error) {
	fv := make(FeatureVector, 0, len(s.Features))
	for _, f := range s.Features {
		if f.Encoding != nil {
			v, err := p.Text(f.Field)
			if err != nil {
				return nil, err
			}
			fv = append(fv, f.Encoding.Code(v))
			continue
		}
		v, err := p.Number(f.Field)
		if err != nil {
			return nil, err
		}
		fv = append(fv, v)
	}
	return fv, nil
}

// FieldNames returns the feature order as field names.
func (s *DomainSpec) FieldNames() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Field
	}
	return names
}

// SoilAnalysis echoes the soil nutrient and pH readings.
type SoilAnalysis struct {
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
	PHLevel    float64 `json:"ph_level"`
}

// WeatherConditions echoes the weather readings.
type WeatherConditions struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Rainfall    float64 `json:"rainfall"`
}

// CropRecommendation is the crop domain response.
type CropRecommendation struct {
	RecommendedCrop   string            `json:"recommended_crop"`
	SoilAnalysis      SoilAnalysis      `json:"soil_analysis"`
	WeatherConditions WeatherConditions `json:"weather_conditions"`
}

// FertilizerRecommendation is the fertilizer domain response.
type FertilizerRecommendation struct {
	RecommendedFertilizer string       `json:"recommended_fertilizer"`
	SoilAnalysis          SoilAnalysis `json:"soil_analysis"`
	AreaHectares          float64      `json:"area_hectares"`
}

// CropInfo echoes the crop description of a dosage request.
type CropInfo struct {
	Type        string `json:"type"`
	GrowthStage string `json:"growth_stage"`
}

// ApplicationGuidelines groups the inputs a dosage recommendation was made for.
type ApplicationGuidelines struct {
	SoilConditions SoilAnalysis `json:"soil_conditions"`
	CropInfo       CropInfo     `json:"crop_info"`
	AreaHectares   float64      `json:"area_hectares"`
}

// DosageRecommendation is the dosage domain response.
type DosageRecommendation struct {
	RecommendedDosage     float64               `json:"recommended_dosage"`
	DosagePerHectare      float64               `json:"dosage_per_hectare"`
	ApplicationGuidelines ApplicationGuidelines `json:"application_guidelines"`
}

// YieldInputs echoes the inputs of a yield prediction.
type YieldInputs struct {
	AreaHectares       float64 `json:"area_hectares"`
	CropType           string  `json:"crop_type"`
	Season             string  `json:"season"`
	RainfallMM         float64 `json:"rainfall_mm"`
	TemperatureCelsius float64 `json:"temperature_celsius"`
	HumidityPercent    float64 `json:"humidity_percent"`
	SoilQuality        string  `json:"soil_quality"`
}

// YieldPrediction is the yield domain response.
type YieldPrediction struct {
	PredictedYield  float64     `json:"predicted_yield"`
	YieldPerHectare float64     `json:"yield_per_hectare"`
	InputParameters YieldInputs `json:"input_parameters"`
}

var (
	cropSpec = &DomainSpec{
		Domain:   DomainCrop,
		Title:    "Crop",
		Action:   "recommendation",
		Path:     "/api/crop-recommendation",
		Required: []string{"soil_n", "soil_p", "soil_k", "ph", "temperature", "humidity", "rainfall"},
		Numeric:  []string{"soil_n", "soil_p", "soil_k", "ph", "temperature", "humidity", "rainfall"},
		Features: []Feature{
			{Field: "soil_n"}, {Field: "soil_p"}, {Field: "soil_k"}, {Field: "ph"},
			{Field: "temperature"}, {Field: "humidity"}, {Field: "rainfall"},
		},
		Shape: shapeCrop,
	}

	fertilizerSpec = &DomainSpec{
		Domain:   DomainFertilizer,
		Title:    "Fertilizer",
		Action:   "recommendation",
		Path:     "/api/fertilizer-recommendation",
		Required: []string{"soil_n", "soil_p", "soil_k", "ph", "area"},
		Numeric:  []string{"soil_n", "soil_p", "soil_k", "ph", "area"},
		Features: []Feature{
			{Field: "soil_n"}, {Field: "soil_p"}, {Field: "soil_k"}, {Field: "ph"}, {Field: "area"},
		},
		Shape: shapeFertilizer,
	}

	dosageSpec = &DomainSpec{
		Domain:   DomainDosage,
		Title:    "Dosage",
		Action:   "recommendation",
		Path:     "/api/dosage-recommendation",
		Required: []string{"soil_n", "soil_p", "soil_k", "ph", "crop_type", "growth_stage", "area"},
		Numeric:  []string{"soil_n", "soil_p", "soil_k", "ph", "area"},
		Features: []Feature{
			{Field: "soil_n"}, {Field: "soil_p"}, {Field: "soil_k"}, {Field: "ph"},
			{Field: "growth_stage", Encoding: GrowthStageEncoding},
			{Field: "area"},
		},
		Shape: shapeDosage,
	}

	yieldSpec = &DomainSpec{
		Domain:   DomainYield,
		Title:    "Yield",
		Action:   "prediction",
		Path:     "/api/yield-prediction",
		Required: []string{"area", "crop_type", "season", "rainfall", "temperature", "humidity", "soil_quality"},
		Numeric:  []string{"area", "rainfall", "temperature", "humidity"},
		Features: []Feature{
			{Field: "area"},
			{Field: "season", Encoding: SeasonEncoding},
			{Field: "rainfall"}, {Field: "temperature"}, {Field: "humidity"},
			{Field: "soil_quality", Encoding: SoilQualityEncoding},
		},
		Shape: shapeYield,
	}

	specs = map[Domain]*DomainSpec{
		DomainCrop:       cropSpec,
		DomainFertilizer: fertilizerSpec,
		DomainDosage:     dosageSpec,
		DomainYield:      yieldSpec,
	}
)

// SpecFor returns the pipeline configuration for d.
func SpecFor(d Domain) (*DomainSpec, error) {
	s, ok := specs[d]
	if !ok {
		return nil, ErrUnknownDomain
	}
	return s, nil
}

// Specs returns every domain's configuration in Domains order.
func Specs() []*DomainSpec {
	out := make([]*DomainSpec, 0, len(Domains))
	for _, d := range Domains {
		out = append(out, specs[d])
	}
	return out
}

// numbers reads several numeric fields at once.
func numbers(p Payload, fields ...string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := p.Number(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func texts(p Payload, fields ...string) ([]string, error) {
	out := make([]string, len(fields))
	for i, f := range fields {
		v, err := p.Text(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func soilAnalysis(p Payload) (SoilAnalysis, error) {
	n, err := numbers(p, "soil_n", "soil_p", "soil_k", "ph")
	if err != nil {
		return SoilAnalysis{}, err
	}
	return SoilAnalysis{Nitrogen: n[0], Phosphorus: n[1], Potassium: n[2], PHLevel: n[3]}, nil
}

// label returns a classifier's label, formatting a regressor's value.
func label(pred Prediction) string {
	if pred.IsLabel {
		return pred.Label
	}
	return strconv.FormatFloat(pred.Value, 'f', -1, 64)
}

// value returns a regressor's value, parsing a numeric classifier label.
func value(pred Prediction) (float64, error) {
	if !pred.IsLabel {
		if !finite(pred.Value) {
			return 0, ErrNonFiniteValue
		}
		return pred.Value, nil
	}
	v, err := strconv.ParseFloat(pred.Label, 64)
	if err != nil {
		return 0, err
	}
	if !finite(v) {
		return 0, ErrNonFiniteValue
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// perHectare divides total by area, rounding both to two decimals.
func perHectare(total, area float64) (float64, float64, error) {
	if area == 0 {
		return 0, 0, ErrDivisionByZero
	}
	rate := total / area
	if !finite(total) || !finite(rate) {
		return 0, 0, ErrNonFiniteValue
	}
	return Round2(total), Round2(rate), nil
}

func shapeCrop(p Payload, pred Prediction) (any, error) {
	soil, err := soilAnalysis(p)
	if err != nil {
		return nil, err
	}
	w, err := numbers(p, "temperature", "humidity", "rainfall")
	if err != nil {
		return nil, err
	}
	return &CropRecommendation{
		RecommendedCrop: label(pred),
		SoilAnalysis:    soil,
		WeatherConditions: WeatherConditions{
			Temperature: w[0],
			Humidity:    w[1],
			Rainfall:    w[2],
		},
	}, nil
}

func shapeFertilizer(p Payload, pred Prediction) (any, error) {
	soil, err := soilAnalysis(p)
	if err != nil {
		return nil, err
	}
	area, err := p.Number("area")
	if err != nil {
		return nil, err
	}
	return &FertilizerRecommendation{
		RecommendedFertilizer: label(pred),
		SoilAnalysis:          soil,
		AreaHectares:          area,
	}, nil
}

func shapeDosage(p Payload, pred Prediction) (any, error) {
	soil, err := soilAnalysis(p)
	if err != nil {
		return nil, err
	}
	crop, err := texts(p, "crop_type", "growth_stage")
	if err != nil {
		return nil, err
	}
	area, err := p.Number("area")
	if err != nil {
		return nil, err
	}
	total, err := value(pred)
	if err != nil {
		return nil, err
	}
	dosage, rate, err := perHectare(total, area)
	if err != nil {
		return nil, err
	}
	return &DosageRecommendation{
		RecommendedDosage: dosage,
		DosagePerHectare:  rate,
		ApplicationGuidelines: ApplicationGuidelines{
			SoilConditions: soil,
			CropInfo:       CropInfo{Type: crop[0], GrowthStage: crop[1]},
			AreaHectares:   area,
		},
	}, nil
}

func shapeYield(p Payload, pred Prediction) (any, error) {
	n, err := numbers(p, "area", "rainfall", "temperature", "humidity")
	if err != nil {
		return nil, err
	}
	t, err := texts(p, "crop_type", "season", "soil_quality")
	if err != nil {
		return nil, err
	}
	total, err := value(pred)
	if err != nil {
		return nil, err
	}
	predicted, rate, err := perHectare(total, n[0])
	if err != nil {
		return nil, err
	}
	return &YieldPrediction{
		PredictedYield:  predicted,
		YieldPerHectare: rate,
		InputParameters: YieldInputs{
			AreaHectares:       n[0],
			CropType:           t[0],
			Season:             t[1],
			RainfallMM:         n[1],
			TemperatureCelsius: n[2],
			HumidityPercent:    n[3],
			SoilQuality:        t[2],
		},
	}, nil
}

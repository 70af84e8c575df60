package advisor

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cropPayload() Payload {
	return Payload{
		"soil_n": json.Number("90"), "soil_p": json.Number("42"), "soil_k": json.Number("43"),
		"ph": json.Number("6.5"), "temperature": json.Number("20.8"),
		"humidity": json.Number("82"), "rainfall": json.Number("202.9"),
	}
}

func dosagePayload() Payload {
	return Payload{
		"soil_n": json.Number("45"), "soil_p": json.Number("25"), "soil_k": json.Number("30"),
		"ph": json.Number("6.5"), "crop_type": "wheat", "growth_stage": "vegetative",
		"area": json.Number("2"),
	}
}

func yieldPayload() Payload {
	return Payload{
		"area": json.Number("4"), "crop_type": "rice", "season": "autumn",
		"rainfall": json.Number("1100"), "temperature": json.Number("26"),
		"humidity": json.Number("75"), "soil_quality": "poor",
	}
}

func TestSpecs_CoverEveryDomain(t *testing.T) {
	specs := Specs()
	require.Len(t, specs, len(Domains))
	for i, s := range specs {
		assert.Equal(t, Domains[i], s.Domain)
		assert.NotEmpty(t, s.Path)
		assert.NotNil(t, s.Shape)
	}

	_, err := SpecFor("orchard")
	assert.ErrorIs(t, err, ErrUnknownDomain)
}

func TestSpecs_FieldOrder(t *testing.T) {
	tests := map[Domain][]string{
		DomainCrop:       {"soil_n", "soil_p", "soil_k", "ph", "temperature", "humidity", "rainfall"},
		DomainFertilizer: {"soil_n", "soil_p", "soil_k", "ph", "area"},
		DomainDosage:     {"soil_n", "soil_p", "soil_k", "ph", "growth_stage", "area"},
		DomainYield:      {"area", "season", "rainfall", "temperature", "humidity", "soil_quality"},
	}
	for d, want := range tests {
		spec, err := SpecFor(d)
		require.NoError(t, err)
		assert.Equal(t, want, spec.FieldNames(), d)
	}
}

func TestDomainSpec_Validate(t *testing.T) {
	spec, err := SpecFor(DomainDosage)
	require.NoError(t, err)

	assert.NoError(t, spec.Validate(dosagePayload()))

	p := dosagePayload()
	delete(p, "crop_type")
	delete(p, "area")
	assert.EqualError(t, spec.Validate(p), "Missing required field: crop_type")

	p = dosagePayload()
	p["area"] = "two"
	err = spec.Validate(p)
	assert.EqualError(t, err, "Invalid value for field: area")
	assert.True(t, IsValidationError(err))

	// Categorical fields only need to be present.
	p = dosagePayload()
	p["growth_stage"] = json.Number("7")
	assert.NoError(t, spec.Validate(p))
}

func TestDomainSpec_Assemble(t *testing.T) {
	crop, _ := SpecFor(DomainCrop)
	fv, err := crop.Assemble(cropPayload())
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{90, 42, 43, 6.5, 20.8, 82, 202.9}, fv)

	dosage, _ := SpecFor(DomainDosage)
	fv, err = dosage.Assemble(dosagePayload())
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{45, 25, 30, 6.5, 2, 2}, fv)

	yield, _ := SpecFor(DomainYield)
	fv, err = yield.Assemble(yieldPayload())
	require.NoError(t, err)
	assert.Equal(t, FeatureVector{4, 3, 1100, 26, 75, 1}, fv)
}

func TestDomainSpec_AssembleMissingFieldIsTyped(t *testing.T) {
	yield, _ := SpecFor(DomainYield)
	p := yieldPayload()
	delete(p, "season")

	_, err := yield.Assemble(p)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "season", ve.Field)
	assert.Equal(t, ReasonMissing, ve.Reason)
}

func TestDomainSpec_Messages(t *testing.T) {
	yield, _ := SpecFor(DomainYield)
	assert.Equal(t, "Yield prediction failed: division by zero", yield.FailureMessage(ErrDivisionByZero))
	assert.Equal(t, "Yield model not available. Please check model file.", yield.UnavailableMessage())

	fert, _ := SpecFor(DomainFertilizer)
	assert.Equal(t, "Fertilizer model not available. Please check model file.", fert.UnavailableMessage())
}

func TestShapeCrop(t *testing.T) {
	crop, _ := SpecFor(DomainCrop)
	body, err := crop.Shape(cropPayload(), LabelPrediction("maize"))
	require.NoError(t, err)

	rec := body.(*CropRecommendation)
	assert.Equal(t, "maize", rec.RecommendedCrop)
	assert.Equal(t, SoilAnalysis{Nitrogen: 90, Phosphorus: 42, Potassium: 43, PHLevel: 6.5}, rec.SoilAnalysis)
	assert.Equal(t, WeatherConditions{Temperature: 20.8, Humidity: 82, Rainfall: 202.9}, rec.WeatherConditions)
}

func TestShapeFertilizer_RegressorValueIsFormatted(t *testing.T) {
	fert, _ := SpecFor(DomainFertilizer)
	p := Payload{
		"soil_n": json.Number("45"), "soil_p": json.Number("25"), "soil_k": json.Number("30"),
		"ph": json.Number("6.5"), "area": json.Number("2.5"),
	}

	body, err := fert.Shape(p, ValuePrediction(3))
	require.NoError(t, err)

	rec := body.(*FertilizerRecommendation)
	assert.Equal(t, "3", rec.RecommendedFertilizer)
	assert.Equal(t, 45.0, rec.SoilAnalysis.Nitrogen)
	assert.Equal(t, 2.5, rec.AreaHectares)
}

func TestShapeDosage(t *testing.T) {
	dosage, _ := SpecFor(DomainDosage)

	tests := []struct {
		name     string
		area     string
		pred     Prediction
		wantDose float64
		wantRate float64
		wantErr  error
	}{
		{"even split", "2", ValuePrediction(150), 150, 75, nil},
		{"rounded", "3", ValuePrediction(100.004), 100, 33.33, nil},
		{"numeric label", "4", LabelPrediction("10"), 10, 2.5, nil},
		{"zero area", "0", ValuePrediction(150), 0, 0, ErrDivisionByZero},
		{"rate overflows", "1e-320", ValuePrediction(150), 0, 0, ErrNonFiniteValue},
		{"NaN label", "2", LabelPrediction("NaN"), 0, 0, ErrNonFiniteValue},
		{"infinite label", "2", LabelPrediction("-Inf"), 0, 0, ErrNonFiniteValue},
		{"infinite value", "2", ValuePrediction(math.Inf(1)), 0, 0, ErrNonFiniteValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := dosagePayload()
			p["area"] = json.Number(tt.area)

			body, err := dosage.Shape(p, tt.pred)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			rec := body.(*DosageRecommendation)
			assert.Equal(t, tt.wantDose, rec.RecommendedDosage)
			assert.Equal(t, tt.wantRate, rec.DosagePerHectare)
			assert.Equal(t, CropInfo{Type: "wheat", GrowthStage: "vegetative"}, rec.ApplicationGuidelines.CropInfo)
		})
	}

	_, err := dosage.Shape(dosagePayload(), LabelPrediction("high"))
	assert.Error(t, err)
}

func TestShapeYield(t *testing.T) {
	yield, _ := SpecFor(DomainYield)

	body, err := yield.Shape(yieldPayload(), ValuePrediction(10.002))
	require.NoError(t, err)

	rec := body.(*YieldPrediction)
	assert.Equal(t, 10.0, rec.PredictedYield)
	assert.Equal(t, 2.5, rec.YieldPerHectare)
	assert.Equal(t, YieldInputs{
		AreaHectares:       4,
		CropType:           "rice",
		Season:             "autumn",
		RainfallMM:         1100,
		TemperatureCelsius: 26,
		HumidityPercent:    75,
		SoilQuality:        "poor",
	}, rec.InputParameters)

	p := yieldPayload()
	p["area"] = json.Number("0")
	_, err = yield.Shape(p, ValuePrediction(9))
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = yield.Shape(yieldPayload(), ValuePrediction(math.NaN()))
	assert.ErrorIs(t, err, ErrNonFiniteValue)
}

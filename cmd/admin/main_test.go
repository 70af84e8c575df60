package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/agri-advisor/pkg/advisor"
)

func TestParseOptions(t *testing.T) {
	opts := parseOptions([]string{"--module=crop", "--limit=5", "--json", "--file=models/crop.yaml", "positional"})

	assert.Equal(t, "crop", opts.module)
	assert.Equal(t, 5, opts.limit)
	assert.True(t, opts.json)
	assert.Equal(t, "models/crop.yaml", opts.file)
	assert.Empty(t, opts.domain)
}

func TestParseOptions_Defaults(t *testing.T) {
	opts := parseOptions([]string{"--limit=lots"})

	assert.Equal(t, advisor.DefaultAuditLimit, opts.limit)
	assert.False(t, opts.json)
}

func TestValidateArtifact(t *testing.T) {
	doc := []byte("kind: linear\nfeatures: [soil_n, soil_p, soil_k, ph, growth_stage, area]\ncoefficients: [0.2, 0.1, 0.1, 1, 5, 10]\n")

	assert.NoError(t, validateArtifact(advisor.DomainDosage, "dosage.yaml", "out/dosage.yaml", doc))

	err := validateArtifact(advisor.DomainDosage, "dosage.yaml", "out/dosage.json", doc)
	assert.ErrorContains(t, err, "file extension must match")

	err = validateArtifact(advisor.DomainYield, "yield.yaml", "yield.yaml", doc)
	assert.ErrorIs(t, err, advisor.ErrInvalidArtifact)

	err = validateArtifact(advisor.DomainDosage, "dosage.yaml", "dosage.yaml", []byte("kind: [oops"))
	assert.ErrorIs(t, err, advisor.ErrInvalidArtifact)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

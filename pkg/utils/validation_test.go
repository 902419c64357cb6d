package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleInput struct {
	Name  string `validate:"required,min=2,max=10"`
	Kind  string `validate:"omitempty,oneof=basic premium"`
	Count int    `validate:"omitempty,gt=0"`
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.NoError(t, ValidateStruct(sampleInput{Name: "Acme", Kind: "basic", Count: 3}))
}

func TestValidateStruct_Messages(t *testing.T) {
	err := ValidateStruct(sampleInput{})
	assert.EqualError(t, err, "name is required")

	err = ValidateStruct(sampleInput{Name: "a"})
	assert.EqualError(t, err, "name must be at least 2 characters")

	err = ValidateStruct(sampleInput{Name: "Acme", Kind: "enterprise"})
	assert.EqualError(t, err, "kind must be one of: basic premium")
}

func TestValidateStruct_JoinsMultipleErrors(t *testing.T) {
	err := ValidateStruct(sampleInput{Kind: "enterprise"})
	assert.ErrorContains(t, err, "name is required")
	assert.ErrorContains(t, err, "kind must be one of")
}

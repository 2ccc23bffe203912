package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleInput struct {
	Title string `json:"title" validate:"required"`
	Delay int    `json:"delay_days" validate:"gte=0"`
	Kind  string `json:"type" validate:"required,oneof=email linkedin"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateStruct(sampleInput{Title: "t", Kind: "email"}))

	err := ValidateStruct(sampleInput{Delay: -1, Kind: "fax"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "title is required")
		assert.Contains(t, err.Error(), "delay_days must be greater than or equal to 0")
		assert.Contains(t, err.Error(), "type must be one of [email linkedin]")
	}
}

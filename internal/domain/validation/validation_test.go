package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string `json:"name" validate:"required,min=2"`
	Postal   string `json:"postalCode" validate:"len=5,digits"`
	Whatsapp string `json:"whatsappNumber" validate:"omitempty,whatsapp"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(sample{Name: "ok", Postal: "75002", Whatsapp: "+33612345678"})
	assert.NoError(t, err)
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Name: "x", Postal: "7500A", Whatsapp: "12"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *Error
	require.True(t, errors.As(err, &verr))

	rules := map[string]string{}
	for _, f := range verr.Fields {
		rules[f.Field] = f.Rule
		assert.NotEmpty(t, f.Message)
	}

	assert.Equal(t, "min", rules["name"])
	assert.Equal(t, "digits", rules["postalCode"])
	assert.Equal(t, "whatsapp", rules["whatsappNumber"])
}

func TestNew_SingleField(t *testing.T) {
	err := New("dateStart", "future", "must be in the future")

	assert.Len(t, err.Fields, 1)
	assert.Contains(t, err.Error(), "dateStart")
	assert.ErrorIs(t, err, ErrValidation)
}

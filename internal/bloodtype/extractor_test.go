package bloodtype

import (
	"testing"

	"thalrakshak-assistant/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestExtract_CanonicalizesVariants(t *testing.T) {
	cases := []struct {
		input string
		want  models.BloodType
	}{
		{"a+", models.APositive},
		{"A+", models.APositive},
		{"A +", models.APositive},
		{"need a+ urgently", models.APositive},
		{"my type is B -.", models.BNegative},
		{"O+ve", models.OPositive},
		{"(AB+)", models.ABPositive},
		{"ab-", models.ABNegative},
		{"Ab -", models.ABNegative},
		{"do you have AB- blood", models.ABNegative},
		{"O−", models.ONegative},
		{"Ｏ＋", models.OPositive},
		{"I need 2 units of O+ blood urgently", models.OPositive},
		{"b-positive? no, B-", models.BNegative},
	}
	for _, tc := range cases {
		got, ok := Extract(tc.input)
		assert.True(t, ok, tc.input)
		assert.Equal(t, tc.want, got, tc.input)
		assert.Equal(t, tc.want.InventoryKey(), got.InventoryKey(), tc.input)
	}
}

func TestExtract_NoMatch(t *testing.T) {
	for _, input := range []string{
		"",
		"blood",
		"type A please",
		"AB",
		"bob+alice",
		"C+",
		"Plan A - call me",
		"is there a - sign",
		"need a + urgently",
		"A  +",
		"A+B",
	} {
		_, ok := Extract(input)
		assert.False(t, ok, input)
	}
}

func TestExtract_FirstMatchWins(t *testing.T) {
	bt, ok := Extract("I am O- but my father is AB+")
	assert.True(t, ok)
	assert.Equal(t, models.ONegative, bt)
}

func TestParse(t *testing.T) {
	bt, ok := Parse(" ab- ")
	assert.True(t, ok)
	assert.Equal(t, models.ABNegative, bt)

	_, ok = Parse("AB- blood")
	assert.False(t, ok)

	_, ok = Parse("A")
	assert.False(t, ok)
}

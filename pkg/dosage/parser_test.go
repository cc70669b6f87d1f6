package dosage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx-safety-engine/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedAmt   float64
		expectedUnit  string
		expectedFreq  int
		expectedTotal float64
	}{
		{"once daily", "10 mg once daily", 10, "mg", 1, 10},
		{"twice daily", "50 mg twice daily", 50, "mg", 2, 100},
		{"twice daily with meals", "500 mg twice daily with meals", 500, "mg", 2, 1000},
		{"three times daily", "500 mg three times daily", 500, "mg", 3, 1500},
		{"four times daily", "250 mg four times daily", 250, "mg", 4, 1000},
		{"abbreviation bid", "5 mg BID", 5, "mg", 2, 10},
		{"abbreviation t.i.d", "1 g t.i.d.", 1, "g", 3, 3},
		{"abbreviation qid", "2.5 ml qid", 2.5, "ml", 4, 10},
		{"micrograms", "100 mcg once daily", 100, "mcg", 1, 100},
		{"units", "10 Units qd", 10, "units", 1, 10},
		{"no space", "20mg daily", 20, "mg", 1, 20},
		{"no frequency", "650 mg every 4-6 hours", 650, "mg", 1, 650},
		{"first dose wins", "500 mg on day 1, then 250 mg daily for 4 days", 500, "mg", 1, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Parse(tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedAmt, spec.Amount)
			assert.Equal(t, tt.expectedUnit, spec.Unit)
			assert.Equal(t, tt.expectedFreq, spec.Frequency)
			assert.Equal(t, tt.expectedTotal, spec.TotalDaily())
		})
	}
}

func TestParse_Failure(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"as directed by physician",
		"two tablets daily",
		"0 mg once daily",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrParseFailure))

			var pe *domain.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, input, pe.Input)
		})
	}
}

func TestParseMaxDose(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"80 mg", 80, true},
		{"3200 mg", 3200, true},
		{"2.5 g per day", 2.5, true},
		{"", 0, false},
		{"not established", 0, false},
		{"0 mg", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseMaxDose(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "7.5 mg", FormatAmount(7.5, "mg"))
	assert.Equal(t, "250.0 mg", FormatAmount(250, "mg"))
	assert.Equal(t, "0.3 ml", FormatAmount(0.26, "ml"))

	assert.Equal(t, "once daily", FormatFrequency(1))
	assert.Equal(t, "twice daily", FormatFrequency(2))
	assert.Equal(t, "three times daily", FormatFrequency(3))
	assert.Equal(t, "four times daily", FormatFrequency(4))
	assert.Equal(t, "6 times daily", FormatFrequency(6))
}

func TestEquivalent(t *testing.T) {
	spec := domain.DosageSpec{Amount: 7.5, Unit: "mg", Frequency: 1}

	assert.True(t, Equivalent("7.5 mg once daily", spec))
	assert.True(t, Equivalent("7.50 MG", spec))
	assert.False(t, Equivalent("10 mg once daily", spec))
	assert.False(t, Equivalent("7.5 ml", spec))
	assert.False(t, Equivalent("as needed", spec))
}

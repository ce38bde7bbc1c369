package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRomanize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   int
		want    string
		wantErr bool
	}{
		{name: "one", input: 1, want: "I"},
		{name: "four", input: 4, want: "IV"},
		{name: "nine", input: 9, want: "IX"},
		{name: "fourteen", input: 14, want: "XIV"},
		{name: "1994", input: 1994, want: "MCMXCIV"},
		{name: "2026", input: 2026, want: "MMXXVI"},
		{name: "upper bound", input: 3999, want: "MMMCMXCIX"},
		{name: "zero has no representation", input: 0, wantErr: true},
		{name: "negative has no representation", input: -7, wantErr: true},
		{name: "above upper bound", input: 4000, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Romanize(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDeromanize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "1994", input: "MCMXCIV", want: 1994},
		{name: "lowercase accepted", input: "mcmxciv", want: 1994},
		{name: "surrounding whitespace", input: " XIV ", want: 14},
		{name: "empty", input: "", wantErr: true},
		{name: "invalid character", input: "MCMA", wantErr: true},
		{name: "non-canonical repetition", input: "IIII", wantErr: true},
		{name: "non-canonical subtraction", input: "IM", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Deromanize(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// The whole 1..3999 input domain must round-trip; zero and negatives are an
// input-domain boundary since Roman numerals have no representation for them.
func TestRomanRoundTrip(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 3999; n++ {
		numeral, err := Romanize(n)
		require.NoError(t, err, "n=%d", n)
		back, err := Deromanize(numeral)
		require.NoError(t, err, "numeral=%s", numeral)
		require.Equal(t, n, back)
	}
}

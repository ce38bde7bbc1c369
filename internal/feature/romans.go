package feature

import (
	"fmt"
	"strings"
)

// Roman numerals have no zero or negative representation; the supported input
// domain is 1..3999.
var romanValues = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// Romanize converts an integer in 1..3999 to its Roman numeral.
func Romanize(n int) (string, error) {
	if n <= 0 || n > 3999 {
		return "", fmt.Errorf("requires a number between 1 and 3999")
	}

	var sb strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			sb.WriteString(rv.symbol)
			n -= rv.value
		}
	}
	return sb.String(), nil
}

// Deromanize converts a Roman numeral string back to its integer value. The
// numeral must be canonical: Deromanize(Romanize(n)) == n for 1..3999 and
// anything else is rejected.
func Deromanize(numeral string) (int, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(numeral))
	if cleaned == "" {
		return 0, fmt.Errorf("requires a roman numeral")
	}

	values := map[rune]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}

	total := 0
	for i, r := range cleaned {
		v, ok := values[r]
		if !ok {
			return 0, fmt.Errorf("invalid roman numeral character %q", r)
		}
		if i+1 < len(cleaned) && values[rune(cleaned[i+1])] > v {
			total -= v
		} else {
			total += v
		}
	}

	// Reject non-canonical spellings such as IIII or IM.
	canonical, err := Romanize(total)
	if err != nil || canonical != cleaned {
		return 0, fmt.Errorf("invalid roman numeral %q", numeral)
	}
	return total, nil
}

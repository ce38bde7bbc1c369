package feature

import (
	"fmt"
	"strings"
)

// International Morse code. Letters are separated by a single space, words by
// a slash, matching the convention of common encoder tooling.
var morseByRune = map[rune]string{
	'A': ".-", 'B': "-...", 'C': "-.-.", 'D': "-..", 'E': ".",
	'F': "..-.", 'G': "--.", 'H': "....", 'I': "..", 'J': ".---",
	'K': "-.-", 'L': ".-..", 'M': "--", 'N': "-.", 'O': "---",
	'P': ".--.", 'Q': "--.-", 'R': ".-.", 'S': "...", 'T': "-",
	'U': "..-", 'V': "...-", 'W': ".--", 'X': "-..-", 'Y': "-.--",
	'Z': "--..",
	'0': "-----", '1': ".----", '2': "..---", '3': "...--", '4': "....-",
	'5': ".....", '6': "-....", '7': "--...", '8': "---..", '9': "----.",
	'.': ".-.-.-", ',': "--..--", '?': "..--..", '\'': ".----.",
	'!': "-.-.--", '/': "-..-.", '(': "-.--.", ')': "-.--.-",
	'&': ".-...", ':': "---...", ';': "-.-.-.", '=': "-...-",
	'+': ".-.-.", '-': "-....-", '_': "..--.-", '"': ".-..-.",
	'$': "...-..-", '@': ".--.-.",
}

var runeByMorse = func() map[string]rune {
	m := make(map[string]rune, len(morseByRune))
	for r, code := range morseByRune {
		m[code] = r
	}
	return m
}()

// MorseEncode converts text into International Morse code. Unknown characters
// fail the whole conversion.
func MorseEncode(text string) (string, error) {
	words := strings.Fields(strings.ToUpper(strings.TrimSpace(text)))
	if len(words) == 0 {
		return "", fmt.Errorf("nothing to encode")
	}

	encodedWords := make([]string, 0, len(words))
	for _, word := range words {
		codes := make([]string, 0, len(word))
		for _, r := range word {
			code, ok := morseByRune[r]
			if !ok {
				return "", fmt.Errorf("character %q cannot be encoded", r)
			}
			codes = append(codes, code)
		}
		encodedWords = append(encodedWords, strings.Join(codes, " "))
	}
	return strings.Join(encodedWords, " / "), nil
}

// MorseDecode converts International Morse code back into text. Letters are
// expected to be space-separated, words separated by a slash.
func MorseDecode(code string) (string, error) {
	words := strings.Split(strings.TrimSpace(code), "/")
	if len(words) == 1 && strings.TrimSpace(words[0]) == "" {
		return "", fmt.Errorf("nothing to decode")
	}

	decodedWords := make([]string, 0, len(words))
	for _, word := range words {
		var sb strings.Builder
		for _, symbol := range strings.Fields(word) {
			r, ok := runeByMorse[symbol]
			if !ok {
				return "", fmt.Errorf("sequence %q cannot be decoded", symbol)
			}
			sb.WriteRune(r)
		}
		decodedWords = append(decodedWords, sb.String())
	}
	return strings.Join(decodedWords, " "), nil
}

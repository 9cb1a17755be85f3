package builder

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxFieldLength = 200

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)

// parseText validates a free-text customer field.
func parseText(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxFieldLength {
		return "", false
	}
	return trimmed, true
}

// parsePhone validates a phone number entry.
func parsePhone(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if !phonePattern.MatchString(trimmed) {
		return "", false
	}
	return trimmed, true
}

// parseQuantity parses a positive integer quantity.
func parseQuantity(input string) (int, bool) {
	quantity, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || quantity <= 0 {
		return 0, false
	}
	return quantity, true
}

// parsePrice parses a non-negative price; a decimal comma is accepted.
func parsePrice(input string) (float64, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(input), ",", ".")
	price, err := strconv.ParseFloat(normalized, 64)
	if err != nil || price < 0 {
		return 0, false
	}
	return price, true
}

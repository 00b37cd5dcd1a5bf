package lotto

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateLuckyNumbers checks count, range and uniqueness of user picks.
func ValidateLuckyNumbers(numbers []int) error {
	if len(numbers) > MaxLuckyNumbers {
		return &InputValidationError{
			Field:  "lucky_numbers",
			Reason: fmt.Sprintf("at most %d numbers allowed, got %d", MaxLuckyNumbers, len(numbers)),
		}
	}
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < MinNumber || n > MaxNumber {
			return &InputValidationError{
				Field:  "lucky_numbers",
				Reason: fmt.Sprintf("number %d must be between %d and %d", n, MinNumber, MaxNumber),
			}
		}
		if seen[n] {
			return &InputValidationError{
				Field:  "lucky_numbers",
				Reason: fmt.Sprintf("duplicate number %d", n),
			}
		}
		seen[n] = true
	}
	return nil
}

// ValidateTicketCount checks 1 <= count <= max.
func ValidateTicketCount(count, max int) error {
	if count < 1 || count > max {
		return &InputValidationError{
			Field:  "count",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", max, count),
		}
	}
	return nil
}

// ValidateExtraSets checks 0 <= count <= max.
func ValidateExtraSets(count, max int) error {
	if count < 0 || count > max {
		return &InputValidationError{
			Field:  "extra_sets",
			Reason: fmt.Sprintf("must be between 0 and %d, got %d", max, count),
		}
	}
	return nil
}

// ValidateDampingInput wraps ValidateDamping as an input error.
func ValidateDampingInput(damping float64) error {
	if err := ValidateDamping(damping); err != nil {
		return &InputValidationError{Field: "damping_factor", Reason: err.Error()}
	}
	return nil
}

// ParseLuckyNumbers reads a comma or space separated list such as
// "7, 14 21". An empty string yields no numbers.
func ParseLuckyNumbers(raw string) ([]int, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	numbers := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, &InputValidationError{Field: "lucky_numbers", Reason: fmt.Sprintf("%q is not an integer", f)}
		}
		numbers = append(numbers, n)
	}
	if err := ValidateLuckyNumbers(numbers); err != nil {
		return nil, err
	}
	return numbers, nil
}

// ParseDamping reads a damping factor, falling back to the default for an
// empty string.
func ParseDamping(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDampingFactor, nil
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &InputValidationError{Field: "damping_factor", Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	if err := ValidateDampingInput(d); err != nil {
		return 0, err
	}
	return d, nil
}

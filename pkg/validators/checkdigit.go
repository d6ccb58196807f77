package validators

import (
	"fmt"
	"strconv"
)

// GTIN lengths accepted by ValidGTIN (GTIN-8, GTIN-12, GTIN-13, GTIN-14).
var gtinLengths = map[int]bool{8: true, 12: true, 13: true, 14: true}

// GLNLength is the fixed length of a Global Location Number.
const GLNLength = 13

// CheckDigit computes the GS1 mod-10 check digit for base, which holds the
// identifier's data digits without the check digit.
func CheckDigit(base string) (int, error) {
	if base == "" {
		return 0, fmt.Errorf("empty identifier")
	}
	if !allDigits(base) {
		return 0, fmt.Errorf("identifier %q contains non-digit characters", base)
	}

	sum := 0
	weight := 3
	for i := len(base) - 1; i >= 0; i-- {
		sum += int(base[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}
	return (10 - sum%10) % 10, nil
}

// AppendCheckDigit returns base with its check digit appended.
func AppendCheckDigit(base string) (string, error) {
	d, err := CheckDigit(base)
	if err != nil {
		return "", err
	}
	return base + strconv.Itoa(d), nil
}

// ValidCheckDigit reports whether the last digit of code is the correct check
// digit for the preceding digits. It does not constrain the length.
func ValidCheckDigit(code string) bool {
	if len(code) < 2 || !allDigits(code) {
		return false
	}
	want, err := CheckDigit(code[:len(code)-1])
	if err != nil {
		return false
	}
	return int(code[len(code)-1]-'0') == want
}

// ValidGTIN reports whether s is an 8, 12, 13 or 14 digit GTIN with a valid
// check digit.
func ValidGTIN(s string) bool {
	if !gtinLengths[len(s)] {
		return false
	}
	return ValidCheckDigit(s)
}

// ValidGLN reports whether s is a 13 digit GLN with a valid check digit.
func ValidGLN(s string) bool {
	if len(s) != GLNLength {
		return false
	}
	return ValidCheckDigit(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

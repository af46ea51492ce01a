package utils

// LuhnDigit returns the check digit that makes digits, with the check digit
// appended, pass the Luhn check. digits are in left-to-right order.
func LuhnDigit(digits []int) int {
	sum := 0
	// The check digit will take the rightmost position, so the last body
	// digit is the first one to be doubled.
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// LuhnValid reports whether number is a digit string passing the Luhn check.
// Empty input or any non-digit character is invalid.
func LuhnValid(number string) bool {
	if number == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Mod11CheckDigit computes a modulo-11 check digit. The first digit is
// weighted len(digits)+1 and each following digit one less. Results above 9
// map to 0.
func Mod11CheckDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	digit := 11 - sum%11
	if digit > 9 {
		return 0
	}
	return digit
}

// ValidNationalID reports whether id is an 11-digit national ID whose two
// trailing digits match Mod11CheckDigit over the preceding digits.
func ValidNationalID(id string) bool {
	if len(id) != 11 {
		return false
	}
	digits, ok := toDigits(id)
	if !ok {
		return false
	}
	if Mod11CheckDigit(digits[:9]) != digits[9] {
		return false
	}
	return Mod11CheckDigit(digits[:10]) == digits[10]
}

func toDigits(s string) ([]int, bool) {
	digits := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, false
		}
		digits[i] = int(s[i] - '0')
	}
	return digits, true
}

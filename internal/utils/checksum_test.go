package utils

import "testing"

func digitsOf(t *testing.T, s string) []int {
	t.Helper()
	digits, ok := toDigits(s)
	if !ok {
		t.Fatalf("not a digit string: %q", s)
	}
	return digits
}

func TestLuhnDigit(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{body: "453201511283036", want: 6},
		{body: "37828224631000", want: 5},
		{body: "7992739871", want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			if got := LuhnDigit(digitsOf(t, tt.body)); got != tt.want {
				t.Fatalf("expected check digit %d, got %d", tt.want, got)
			}
		})
	}
}

func TestLuhnValid(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{name: "valid visa", number: "4532015112830366", want: true},
		{name: "valid amex", number: "378282246310005", want: true},
		{name: "wrong check digit", number: "4532015112830367", want: false},
		{name: "empty", number: "", want: false},
		{name: "non digit", number: "4532-0151-1283-0366", want: false},
		{name: "letters", number: "abcd", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LuhnValid(tt.number); got != tt.want {
				t.Fatalf("LuhnValid(%q) = %v, want %v", tt.number, got, tt.want)
			}
		})
	}
}

func TestMod11CheckDigit(t *testing.T) {
	tests := []struct {
		name   string
		digits string
		want   int
	}{
		{name: "first digit", digits: "111444777", want: 3},
		{name: "second digit", digits: "1114447773", want: 5},
		{name: "another first digit", digits: "529982247", want: 2},
		{name: "result above nine maps to zero", digits: "000000000", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mod11CheckDigit(digitsOf(t, tt.digits)); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestValidNationalID(t *testing.T) {
	if !ValidNationalID("11144477735") {
		t.Fatalf("expected 11144477735 to be valid")
	}
	if ValidNationalID("11144477736") {
		t.Fatalf("expected wrong trailing digit to be invalid")
	}
	if ValidNationalID("1114447773") {
		t.Fatalf("expected short id to be invalid")
	}
	if ValidNationalID("1114447773x") {
		t.Fatalf("expected non digit id to be invalid")
	}
}

package validators

import (
	"math/rand"
	"strconv"
	"testing"
)

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    int
		wantErr bool
	}{
		{name: "gtin-14 base", base: "0950600014930", want: 1},
		{name: "gln base", base: "401234500000", want: 9},
		{name: "gtin-8 base", base: "9638507", want: 4},
		{name: "zero sum", base: "0000000", want: 0},
		{name: "empty", base: "", wantErr: true},
		{name: "letters", base: "12a4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckDigit(tt.base)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CheckDigit(%q) expected error", tt.base)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckDigit(%q) unexpected error: %v", tt.base, err)
			}
			if got != tt.want {
				t.Errorf("CheckDigit(%q) = %d, want %d", tt.base, got, tt.want)
			}
		})
	}
}

func TestValidGTIN(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"09506000149301", true},
		{"09506000149300", false},
		{"96385074", true},
		{"036000291452", true},
		{"4006381333931", true},
		{"4006381333932", false},
		{"0950600014930", false}, // 13 digits, wrong check digit for that length
		{"123", false},
		{"", false},
		{"0950600014930A", false},
		{"095060001493011", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ValidGTIN(tt.code); got != tt.want {
				t.Errorf("ValidGTIN(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestValidGLN(t *testing.T) {
	if !ValidGLN("4012345000009") {
		t.Error("expected 4012345000009 to be a valid GLN")
	}
	if ValidGLN("4012345000008") {
		t.Error("expected corrupted GLN to be rejected")
	}
	if ValidGLN("09506000149301") {
		t.Error("expected 14 digit code to be rejected as GLN")
	}
}

func TestCheckDigit_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, length := range []int{7, 11, 12, 13} {
		for i := 0; i < 200; i++ {
			base := randomDigits(rng, length)
			code, err := AppendCheckDigit(base)
			if err != nil {
				t.Fatalf("AppendCheckDigit(%q): %v", base, err)
			}
			if !ValidGTIN(code) {
				t.Fatalf("round trip failed for %q", code)
			}
		}
	}
}

func TestCheckDigit_SingleDigitErrorsDetected(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		code, err := AppendCheckDigit(randomDigits(rng, 13))
		if err != nil {
			t.Fatal(err)
		}

		for pos := 0; pos < len(code); pos++ {
			for d := byte('0'); d <= '9'; d++ {
				if code[pos] == d {
					continue
				}
				mutated := []byte(code)
				mutated[pos] = d
				if ValidGTIN(string(mutated)) {
					t.Fatalf("single digit change %q -> %q was not detected", code, mutated)
				}
			}
		}
	}
}

func randomDigits(rng *rand.Rand, n int) string {
	b := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b = append(b, strconv.Itoa(rng.Intn(10))[0])
	}
	return string(b)
}

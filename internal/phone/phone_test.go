package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"national", "01012345678", "01012345678"},
		{"country code", "201012345678", "01012345678"},
		{"plus and spaces", "+20 101 234 5678", "01012345678"},
		{"missing zero", "1012345678", "01012345678"},
		{"dashes", "010-1234-5678", "01012345678"},
		{"ten digits with zero", "0101234567", "0101234567"},
		{"short", "12345", "12345"},
		{"empty", "", ""},
		{"letters only", "walk-in", ""},
		{"foreign twelve digits", "441234567890", "441234567890"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"01012345678", "201012345678", "+201012345678", "1012345678",
		"0101234567", "2010", "20 12 345 678 90", "", "abc", "002010123456",
		"1234567890123", "200000000000",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeVariantsCollapse(t *testing.T) {
	variants := []string{"01112223334", "201112223334", "+20 111 222 3334", "1112223334"}
	want := Normalize(variants[0])
	for _, v := range variants[1:] {
		if got := Normalize(v); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	cases := map[string]bool{
		"0101":       true,
		"+20 10":     true,
		"151020-26":  true,
		"Ahmed":      false,
		"":           false,
		" - ":        false,
		"قميص":       false,
		"12a":        false,
	}
	for in, want := range cases {
		if got := IsNumeric(in); got != want {
			t.Errorf("IsNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}

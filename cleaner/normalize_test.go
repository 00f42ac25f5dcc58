package cleaner

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercase and trim", input: "  The Grand Design  ", want: "the grand design"},
		{name: "accent folding", input: "Café Société", want: "cafe societe"},
		{name: "punctuation stripped", input: "It's a Test: Part #2!", want: "it s a test part 2"},
		{name: "whitespace squeezed", input: "too   many\tspaces", want: "too many spaces"},
		{name: "hyphen and underscore kept", input: "sci-fi and_fantasy", want: "sci-fi and_fantasy"},
		{name: "empty", input: "", want: ""},
		{name: "only punctuation", input: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.want {
				t.Fatalf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCoercePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		isNil bool
	}{
		{name: "pound sign", input: "£51.77", want: 51.77},
		{name: "mojibake pound sign", input: "Â£26.80", want: 26.8},
		{name: "plain number", input: "12.5", want: 12.5},
		{name: "comma decimal", input: "51,77", want: 51.77},
		{name: "thousands dot with comma decimal", input: "R$ 1.234,56", want: 1234.56},
		{name: "thousands comma with dot decimal", input: "1,234.56", want: 1234.56},
		{name: "negative", input: "-3.5", want: -3.5},
		{name: "empty", input: "", isNil: true},
		{name: "no digits", input: "free", isNil: true},
		{name: "lone separator", input: ".", isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoercePrice(tt.input)
			if tt.isNil {
				if got != nil {
					t.Fatalf("CoercePrice(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("CoercePrice(%q) = nil, want %v", tt.input, tt.want)
			}
			if *got != tt.want {
				t.Fatalf("CoercePrice(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestClampRating(t *testing.T) {
	tests := []struct {
		input int
		want  int
	}{
		{input: -2, want: 0},
		{input: 0, want: 0},
		{input: 3, want: 3},
		{input: 5, want: 5},
		{input: 9, want: 5},
	}
	for _, tt := range tests {
		if got := ClampRating(tt.input); got != tt.want {
			t.Fatalf("ClampRating(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

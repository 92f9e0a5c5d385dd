package transition

import "testing"

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		k        float64
		want     string
	}{
		{"Number", "0", "10", 0.5, "5"},
		{"Start", "0", "10", 0, "0"},
		{"EndVerbatim", "0", "1.50", 1, "1.50"},
		{"Units", "10px", "20px", 0.5, "15px"},
		{"Transform", "translate(0,0)scale(1)", "translate(100,50)scale(3)", 0.5, "translate(50,25)scale(2)"},
		{"ExtraNumbersFixed", "translate(10)", "translate(20,30)", 0.5, "translate(15,30)"},
		{"EmptyFrom", "", "translate(20,30)", 0.5, "translate(20,30)"},
		{"NoNumbers", "inline", "none", 0.5, "none"},
		{"Same", "none", "none", 0.3, "none"},
		{"HexColor", "#000000", "#ffffff", 0.5, "#808080"},
		{"ShortHex", "#000", "#fff", 0, "#000000"},
		{"NamedColor", "black", "white", 1, "white"},
		{"NamedToHex", "red", "#0000ff", 0.5, "#800080"},
		{"RGBColor", "rgb(0, 0, 0)", "rgb(255,0,0)", 0.5, "#800000"},
		{"ColorToNumber", "red", "3", 0.5, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interpolate(tt.from, tt.to)(tt.k); got != tt.want {
				t.Errorf("Interpolate(%q, %q)(%v) = %q, want %q", tt.from, tt.to, tt.k, got, tt.want)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	valid := []string{"red", "RED", " steelblue ", "#abc", "#a0b0c0", "rgb(1,2,3)", "rgb(10%, 20%, 30%)"}
	for _, s := range valid {
		if _, ok := parseColor(s); !ok {
			t.Errorf("parseColor(%q) failed", s)
		}
	}
	invalid := []string{"", "none", "#ggg", "rgb(1,2)", "rgb(1,2,3", "url(#g)", "12"}
	for _, s := range invalid {
		if _, ok := parseColor(s); ok {
			t.Errorf("parseColor(%q) succeeded", s)
		}
	}
}

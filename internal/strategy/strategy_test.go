package strategy

import "testing"

func TestGetClassifiesKnownCodes(t *testing.T) {
	cases := map[string]Kind{
		"kh": Knockout,
		"c":  Cup,
		"m":  Regular,
		"f":  Regular,
		"mo": Regular,
	}
	for code, want := range cases {
		if got := Get(code); got != want {
			t.Errorf("Get(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestGetDefaultsUnknownCodeToRegular(t *testing.T) {
	if got := Get("unknown"); got != Regular {
		t.Errorf("Get(unknown) = %v, want Regular", got)
	}
}

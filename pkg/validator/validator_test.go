package validator

import "testing"

func TestValidateIdentifier(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"magic", true},
		{"field_2", true},
		{"_private", false},
		{"Capital", false},
		{"2field", false},
		{"", false},
	}
	for _, c := range cases {
		err := ValidateOne(c.value, Identifier)
		if (err == nil) != c.ok {
			t.Errorf("ValidateOne(%q) error=%v, want ok=%v", c.value, err, c.ok)
		}
	}
}

func TestValidateXRefPatterns(t *testing.T) {
	cases := []struct {
		name  Name
		value string
		ok    bool
	}{
		{ISO, "9660:1988", true},
		{ISO, "bogus", false},
		{LOC, "fdd000123", true},
		{LOC, "fd123", false},
		{PRONOM, "fmt/43", true},
		{PRONOM, "x-fmt/7", true},
		{PRONOM, "jpeg", false},
		{RFC, "2083", true},
		{RFC, "0", false},
		{WikiData, "Q2115", true},
		{WikiData, "Qabc", false},
		{MIME, "image/png", true},
		{MIME, "bogus", false},
	}
	for _, c := range cases {
		err := ValidateOne(c.value, c.name)
		if (err == nil) != c.ok {
			t.Errorf("ValidateOne(%q, %s) error=%v, want ok=%v", c.value, c.name, err, c.ok)
		}
	}
}

func TestSubmatchesDocRef(t *testing.T) {
	m := Submatches("https://example.com/spec see also page 4", DocRef)
	if m == nil {
		t.Fatal("expected a match")
	}
	if m["URL"] != "https://example.com/spec" {
		t.Errorf("URL = %q", m["URL"])
	}
	if m["arbitrary_string"] != "see also page 4" {
		t.Errorf("arbitrary_string = %q", m["arbitrary_string"])
	}
}

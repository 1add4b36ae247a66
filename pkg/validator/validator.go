package validator

import "github.com/kbinterp/ksyinterp/pkg/kerr"

// Validate checks that every value matches the named pattern. It reports
// the first offending value; the Schema Model never holds a partially
// validated identifier list.
func Validate(values []string, name Name) error {
	re, ok := patterns[name]
	if !ok {
		return &kerr.IntegrityError{Reason: "unknown validator pattern: " + string(name)}
	}
	for _, v := range values {
		if !re.MatchString(v) {
			return &kerr.InvalidValue{Pattern: string(name), Value: v}
		}
	}
	return nil
}

// ValidateOne is a convenience wrapper around Validate for a single value.
func ValidateOne(value string, name Name) error {
	return Validate([]string{value}, name)
}

// Match reports whether value matches the named pattern without producing
// an error; used by callers that want a boolean test (e.g. the loader's
// xref field checks).
func Match(value string, name Name) bool {
	re, ok := patterns[name]
	if !ok {
		return false
	}
	return re.MatchString(value)
}

// Submatches returns the named capture groups of the pattern applied to
// value, or nil if the pattern does not match. Only doc-ref currently
// declares named groups (URL, arbitrary_string).
func Submatches(value string, name Name) map[string]string {
	re, ok := patterns[name]
	if !ok {
		return nil
	}
	m := re.FindStringSubmatch(value)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for i, group := range re.SubexpNames() {
		if i == 0 || group == "" {
			continue
		}
		out[group] = m[i]
	}
	return out
}

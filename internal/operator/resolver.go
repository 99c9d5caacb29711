package operator

import "strings"

// mapping pairs a name fragment with the aggregator code it resolves to.
// Order matters: more specific fragments must precede the plain carrier
// names ("airtel digital" before "airtel").
type mapping struct {
	fragment string
	code     string
}

var mappings = []mapping{
	{"airtel digital", "ADT"},
	{"airtel dth", "ADT"},
	{"airtel", "ATL"},
	{"jio", "RJO"},
	{"vodafone", "VDF"},
	{"idea", "IDA"},
	{"bsnl", "BSN"},
	{"mtnl", "MTN"},
	{"tata play", "TTS"},
	{"tata sky", "TTS"},
	{"dish tv", "DTV"},
	{"dishtv", "DTV"},
	{"d2h", "VD2"},
	{"videocon", "VD2"},
	{"sun direct", "SDT"},
	{"sundirect", "SDT"},
}

// Resolve maps a free-text operator or biller label to the aggregator code.
// Matching is case-insensitive on name fragments; unmatched input is returned
// uppercased verbatim as a best-effort code for downstream validation to
// accept or reject. Resolve never fails.
func Resolve(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, m := range mappings {
		if strings.Contains(lowered, m.fragment) {
			return m.code
		}
	}
	return strings.ToUpper(strings.TrimSpace(name))
}

// ValidCode reports whether a resolved code is usable in an aggregator call.
// Empty strings and the literals an unselected UI field produces are
// rejected, as is anything shorter than three characters.
func ValidCode(code string) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) < 3 {
		return false
	}
	switch strings.ToLower(trimmed) {
	case "undefined", "null", "none":
		return false
	}
	return true
}

package clean

import "strings"

// DefaultLocality is appended to every street address before geocoding.
const DefaultLocality = "Hamilton County, OH"

// suffixRewrites maps the two auditor street-suffix codes that geocoders
// do not recognise to their postal spelling.
var suffixRewrites = []struct {
	code string
	full string
}{
	{"PW", "PKWY"},
	{"TL", "TRAIL"},
}

// NormalizeAddress turns a raw auditor street address into a one-line
// mailing address: a trailing PW or TL is spelled out and the locality is
// appended. An empty locality uses DefaultLocality.
func NormalizeAddress(raw, locality string) string {
	if locality == "" {
		locality = DefaultLocality
	}
	addr := strings.TrimSpace(raw)
	for _, r := range suffixRewrites {
		if strings.HasSuffix(addr, r.code) {
			return addr[:len(addr)-len(r.code)] + r.full + ", " + locality
		}
	}
	return addr + ", " + locality
}

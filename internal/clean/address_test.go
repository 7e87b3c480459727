package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"parkway", "1234 COLUMBIA PW", "1234 COLUMBIA PKWY, Hamilton County, OH"},
		{"trail", "55 INDIAN TL", "55 INDIAN TRAIL, Hamilton County, OH"},
		{"other suffix", "2800 CLIFTON AVE", "2800 CLIFTON AVE, Hamilton County, OH"},
		{"no suffix", "10 MAIN", "10 MAIN, Hamilton County, OH"},
		{"trailing space", "1234 COLUMBIA PW  ", "1234 COLUMBIA PKWY, Hamilton County, OH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAddress(tt.raw, ""))
		})
	}
}

func TestNormalizeAddress_CustomLocality(t *testing.T) {
	assert.Equal(t, "1 ELM ST, Cincinnati, OH", NormalizeAddress("1 ELM ST", "Cincinnati, OH"))
}

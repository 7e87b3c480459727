package clean

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want Month
	}{
		{"4/15/2022", Month{2022, time.April}},
		{"12/1/2019", Month{2019, time.December}},
		{"01/02/2020", Month{2020, time.January}},
		{"2020-01-01", Month{2020, time.January}},
		{"2021-07", Month{2021, time.July}},
		{"3/2022", Month{2022, time.March}},
	}
	for _, tt := range tests {
		got, err := ParseMonth(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseMonth_Invalid(t *testing.T) {
	_, err := ParseMonth("sometime")
	assert.Error(t, err)
}

func TestMonth_StringAndBefore(t *testing.T) {
	m := Month{2022, time.April}
	assert.Equal(t, "4/2022", m.String())
	assert.True(t, Month{2022, time.March}.Before(m))
	assert.True(t, Month{2021, time.December}.Before(m))
	assert.False(t, m.Before(m))
}

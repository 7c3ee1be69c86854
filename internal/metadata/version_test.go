package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersion(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1", 0},
		{"1.0.0", "1", 0},
		{"1.16", "1.9", 1},
		{"1.0.1", "1.0", 1},
		{"1.0", "1.0-rc1", 1},
		{"1.0-rc1", "1.0-rc2", -1},
		{"1.0-beta", "1.0-rc1", -1},
		{"1.0-alpha-1", "1.0-beta-1", -1},
		{"2.0-SNAPSHOT", "2.0", -1},
		{"1.0-final", "1.0", 0},
		{"1.0-sp1", "1.0", 1},
		{"1.0.1", "1.0-rc", 1},
		{"3.0", "2.4.2", 1},
	}
	for _, tc := range cases {
		t.Run(tc.a+"_vs_"+tc.b, func(t *testing.T) {
			assert.Equal(t, tc.want, CompareVersion(tc.a, tc.b))
			assert.Equal(t, -tc.want, CompareVersion(tc.b, tc.a))
		})
	}
}

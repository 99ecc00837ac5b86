package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Version
		parts int
	}{
		{name: "major only", input: "1", want: Version{Major: 1}, parts: 1},
		{name: "major.minor", input: "1.2", want: Version{Major: 1, Minor: 2}, parts: 2},
		{name: "full", input: "0.11.14", want: Version{Minor: 11, Patch: 14}, parts: 3},
		{name: "prerelease", input: "0.11.15-oci", want: Version{Minor: 11, Patch: 15, Prerelease: "oci"}, parts: 3},
		{name: "surrounding space", input: "  1.2.3 ", want: Version{Major: 1, Minor: 2, Patch: 3}, parts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
			assert.Equal(t, tt.parts, got.Components())
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	require.ErrorIs(t, err, ErrEmptyVersion)

	for _, input := range []string{"v1.2.3", "1.", "1.2.3.4", "foo", "1.2.3-", "1.x"} {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrInvalidVersion, "input %q", input)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "1.2.0", MustParse("1.2").String())
	assert.Equal(t, "0.12.0-beta1", MustParse("0.12.0-beta1").String())
}

func TestNumeric(t *testing.T) {
	assert.Equal(t, []uint64{1, 2}, MustParse("1.2-rc1").Numeric())
	assert.Equal(t, []uint64{1, 2, 3}, New(1, 2, 3, "").Numeric())
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.2", "1.2.0", 0},
		{"1.2.3", "1.2.4", -1},
		{"2.0.0", "1.9.9", 1},
		{"0.10.0", "0.9.0", 1},
		{"1.0.0-alpha", "1.0.0", -1},
		{"1.0.0", "1.0.0-alpha", 1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"0.12.0-beta2", "0.11.14", 1},
	}

	for _, tt := range tests {
		got := MustParse(tt.a).Compare(MustParse(tt.b))
		assert.Equal(t, tt.want, got, "Compare(%q, %q)", tt.a, tt.b)
	}
}

func TestCompareZeroOnlyWhenEqual(t *testing.T) {
	a := MustParse("1.0.0-01")
	b := MustParse("1.0.0-1")
	assert.NotZero(t, a.Compare(b))
	assert.False(t, a.Equal(b))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
}

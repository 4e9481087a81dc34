package colors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCanonicalNamesIgnoreCaseAndWhitespace(t *testing.T) {
	t.Parallel()

	require.Equal(t, Resolve("red"), Resolve(" RED "))
	require.Equal(t, "#ef4444", Resolve("Red").CSS())
	require.Equal(t, "#93c5fd", Resolve("\tLight Blue\n").Hex())

	for key, want := range canonical {
		require.Equal(t, want, Resolve(key), key)
		require.True(t, Known(key))
	}
}

func TestResolveSubstringPrefersLongestKey(t *testing.T) {
	t.Parallel()

	// both "blue" and "light blue" are contained; the longer key must win.
	require.Equal(t, canonical["light blue"], Resolve("light blue denim"))
	require.Equal(t, canonical["dark green"], Resolve("Dark Green Camo"))
	require.Equal(t, canonical["navy"], Resolve("navy stripe"))
	// reverse containment: the normalised name is a fragment of a key.
	require.Equal(t, canonical["turquoise"], Resolve("turquois"))
}

func TestResolveSubstringOrderIsStable(t *testing.T) {
	t.Parallel()

	require.Equal(t, len(canonical), len(substringOrder))
	for i := 1; i < len(substringOrder); i++ {
		prev, cur := substringOrder[i-1], substringOrder[i]
		if len(prev) == len(cur) {
			require.Less(t, prev, cur)
			continue
		}
		require.Greater(t, len(prev), len(cur))
	}
}

func TestResolveFallbackHash(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want Color
	}{
		{name: "xyzzy", want: Color{R: 211, G: 222, B: 152}},
		{name: "Mauve", want: Color{R: 106, G: 239, B: 176}},
		{name: "Chartreuse", want: Color{R: 100, G: 101, B: 118}},
		{name: "Aubergine", want: Color{R: 100, G: 184, B: 100}},
		{name: "Sépia", want: Color{R: 253, G: 100, B: 210}},
		{name: "", want: Color{R: 100, G: 100, B: 100}},
	}
	for _, tc := range cases {
		got := Resolve(tc.name)
		require.Equal(t, tc.want, got, tc.name)
		require.False(t, got.Named)
	}

	require.Equal(t, "rgb(211, 222, 152)", Resolve("xyzzy").CSS())
}

func TestResolveFallbackUsesRawInput(t *testing.T) {
	t.Parallel()

	// normalisation only applies to the table lookups.
	require.NotEqual(t, Resolve("Mauve"), Resolve("Mauve "))
	require.Equal(t, Color{R: 243, G: 100, B: 112}, Resolve("Mauve "))
}

func TestResolveFallbackIsDeterministicAndBright(t *testing.T) {
	t.Parallel()

	inputs := []string{"Peach Fuzz", "qqq", "Ω-9", "zz", "Midnight Sun Ω", "☂"}
	for _, in := range inputs {
		first := Resolve(in)
		require.Equal(t, first, Resolve(in), in)
		require.GreaterOrEqual(t, first.R, uint8(minChannel), in)
		require.GreaterOrEqual(t, first.G, uint8(minChannel), in)
		require.GreaterOrEqual(t, first.B, uint8(minChannel), in)
	}
}

func TestSwatches(t *testing.T) {
	t.Parallel()

	require.Nil(t, Swatches(nil))
	got := Swatches([]string{"Black", "xyzzy"})
	require.Equal(t, []Swatch{
		{Name: "Black", Value: "#000000"},
		{Name: "xyzzy", Value: "rgb(211, 222, 152)"},
	}, got)
}

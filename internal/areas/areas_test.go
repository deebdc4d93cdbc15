package areas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLookup(t *testing.T) {
	area, err := Default().Lookup("midtown-detroit")
	require.NoError(t, err)
	require.Equal(t, "Laundry Pickup & Delivery in Midtown Detroit", area.Title)
	require.Equal(t, []string{"48201", "48202"}, area.Zips)
	require.Contains(t, string(area.BlurbHTML), "<em>Woodward corridor</em>")

	corktown, err := Default().Lookup(" Corktown ")
	require.NoError(t, err)
	require.Equal(t, []string{"48216", "48209"}, corktown.Zips)

	_, err = Default().Lookup("atlantis")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDefaultTitleFallback(t *testing.T) {
	area, err := Default().Lookup("ferndale")
	require.NoError(t, err)
	require.Equal(t, "Laundry Pickup & Delivery in Ferndale", area.Title)
	require.Empty(t, area.BlurbHTML)
}

func TestCovers(t *testing.T) {
	d := Default()

	area, ok := d.Covers("48216")
	require.True(t, ok)
	require.Equal(t, "corktown", area.Slug)

	area, ok = d.Covers("48202-1234")
	require.True(t, ok)
	require.Equal(t, "midtown-detroit", area.Slug, "first listed area owns a shared zip")

	_, ok = d.Covers("90210")
	require.False(t, ok)
	_, ok = d.Covers("")
	require.False(t, ok)
}

func TestAllIsSortedAndDetached(t *testing.T) {
	all := Default().All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		require.True(t, prev.Region < cur.Region || (prev.Region == cur.Region && prev.Name <= cur.Name),
			"%s/%s before %s/%s", prev.Region, prev.Name, cur.Region, cur.Name)
	}

	all[0].Zips[0] = "00000"
	again := Default().All()
	require.NotEqual(t, "00000", again[0].Zips[0])
}

func TestBlurbLinksAreSanitized(t *testing.T) {
	d, err := Parse([]byte(`
- slug: test-area
  name: Test
  zips: ["12345"]
  blurb: "See [site](https://example.com) <script>alert(1)</script> [bad](javascript:alert(1))"
`))
	require.NoError(t, err)
	area, err := d.Lookup("test-area")
	require.NoError(t, err)
	html := string(area.BlurbHTML)
	require.Contains(t, html, `href="https://example.com"`)
	require.Contains(t, html, `rel="nofollow"`)
	require.NotContains(t, html, "<script")
	require.NotContains(t, html, "javascript:")
}

func TestParseRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"bad slug":       "- {slug: Bad Slug, name: X, zips: ['12345']}",
		"duplicate slug": "- {slug: a, name: A, zips: ['12345']}\n- {slug: a, name: B, zips: ['12346']}",
		"missing name":   "- {slug: a, zips: ['12345']}",
		"no zips":        "- {slug: a, name: A}",
		"bad zip":        "- {slug: a, name: A, zips: ['1234']}",
		"not yaml list":  "slug: a",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			require.True(t, strings.HasPrefix(err.Error(), "areas:"), err.Error())
		})
	}
}

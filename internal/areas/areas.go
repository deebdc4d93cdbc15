// Package areas is the directory of neighborhoods and suburbs the pickup routes cover.
package areas

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

//go:embed areas.yaml
var catalogYAML []byte

// Area is one covered neighborhood or city.
type Area struct {
	Slug      string        `json:"slug"`
	Name      string        `json:"name"`
	Title     string        `json:"title"`
	Region    string        `json:"region"`
	Zips      []string      `json:"zips"`
	Blurb     string        `json:"blurb,omitempty"`
	BlurbHTML template.HTML `json:"blurbHtml,omitempty"`
}

// ErrNotFound is returned when no area matches.
var ErrNotFound = errors.New("areas: not found")

type areaDoc struct {
	Slug   string   `yaml:"slug"`
	Name   string   `yaml:"name"`
	Title  string   `yaml:"title"`
	Region string   `yaml:"region"`
	Zips   []string `yaml:"zips"`
	Blurb  string   `yaml:"blurb"`
}

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	zipPattern  = regexp.MustCompile(`^\d{5}$`)
)

// Directory is an immutable, indexed area catalog. It is safe for concurrent use.
type Directory struct {
	areas  []Area
	bySlug map[string]int
	byZip  map[string]int
}

// Default returns the catalog compiled into the binary.
func Default() *Directory {
	return defaultDirectory
}

var defaultDirectory = mustParse(catalogYAML)

func mustParse(data []byte) *Directory {
	d, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("areas: embedded catalog: %v", err))
	}
	return d
}

// Parse builds a directory from a YAML list of areas. The first area listing a ZIP code
// owns it for coverage lookups.
func Parse(data []byte) (*Directory, error) {
	var docs []areaDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("areas: decode catalog: %w", err)
	}

	md := goldmark.New()
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)

	d := &Directory{
		areas:  make([]Area, 0, len(docs)),
		bySlug: make(map[string]int, len(docs)),
		byZip:  make(map[string]int),
	}
	for i, doc := range docs {
		slug := strings.TrimSpace(doc.Slug)
		if !slugPattern.MatchString(slug) {
			return nil, fmt.Errorf("areas: entry %d: invalid slug %q", i, doc.Slug)
		}
		if _, dup := d.bySlug[slug]; dup {
			return nil, fmt.Errorf("areas: duplicate slug %q", slug)
		}
		name := strings.TrimSpace(doc.Name)
		if name == "" {
			return nil, fmt.Errorf("areas: %s: name is required", slug)
		}
		if len(doc.Zips) == 0 {
			return nil, fmt.Errorf("areas: %s: at least one zip is required", slug)
		}

		area := Area{
			Slug:   slug,
			Name:   name,
			Title:  strings.TrimSpace(doc.Title),
			Region: strings.TrimSpace(doc.Region),
			Blurb:  strings.TrimSpace(doc.Blurb),
		}
		if area.Title == "" {
			area.Title = "Laundry Pickup & Delivery in " + name
		}
		for _, z := range doc.Zips {
			z = strings.TrimSpace(z)
			if !zipPattern.MatchString(z) {
				return nil, fmt.Errorf("areas: %s: invalid zip %q", slug, z)
			}
			area.Zips = append(area.Zips, z)
		}
		if area.Blurb != "" {
			var buf bytes.Buffer
			if err := md.Convert([]byte(area.Blurb), &buf); err != nil {
				return nil, fmt.Errorf("areas: %s: render blurb: %w", slug, err)
			}
			area.BlurbHTML = template.HTML(strings.TrimSpace(policy.Sanitize(buf.String())))
		}

		idx := len(d.areas)
		d.areas = append(d.areas, area)
		d.bySlug[slug] = idx
		for _, z := range area.Zips {
			if _, taken := d.byZip[z]; !taken {
				d.byZip[z] = idx
			}
		}
	}
	return d, nil
}

// All returns every area ordered by region, then name.
func (d *Directory) All() []Area {
	out := make([]Area, len(d.areas))
	for i, a := range d.areas {
		out[i] = clone(a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Lookup returns the area with the given slug.
func (d *Directory) Lookup(slug string) (Area, error) {
	idx, ok := d.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	if !ok {
		return Area{}, ErrNotFound
	}
	return clone(d.areas[idx]), nil
}

// Covers reports whether postal falls inside a service area. ZIP+4 codes match on
// their first five digits.
func (d *Directory) Covers(postal string) (Area, bool) {
	postal = strings.TrimSpace(postal)
	if len(postal) > 5 && (postal[5] == '-' || postal[5] == ' ') {
		postal = postal[:5]
	}
	idx, ok := d.byZip[postal]
	if !ok {
		return Area{}, false
	}
	return clone(d.areas[idx]), true
}

func clone(a Area) Area {
	a.Zips = append([]string(nil), a.Zips...)
	return a
}

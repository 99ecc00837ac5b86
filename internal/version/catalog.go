package version

import "slices"

// Catalog is an ascending, deduplicated list of versions from one source.
type Catalog []Version

// NewCatalog parses raw version strings, drops the ones that do not parse and
// returns them sorted ascending without duplicates.
func NewCatalog(raw []string) Catalog {
	out := make(Catalog, 0, len(raw))
	for _, s := range raw {
		v, err := Parse(s)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	slices.SortFunc(out, Version.Compare)
	return slices.CompactFunc(out, Version.Equal)
}

// Strings renders every entry in catalog order.
func (c Catalog) Strings() []string {
	out := make([]string, len(c))
	for i, v := range c {
		out[i] = v.String()
	}
	return out
}

// Last returns the highest entry.
func (c Catalog) Last() (Version, bool) {
	if len(c) == 0 {
		return Version{}, false
	}
	return c[len(c)-1], true
}

// Contains reports whether v is in the catalog.
func (c Catalog) Contains(v Version) bool {
	_, found := slices.BinarySearchFunc(c, v, Version.Compare)
	return found
}

package catalog

import (
	"sort"
	"strings"
)

// Row is one raw record from the catalog data source, before any cleanup.
type Row struct {
	Name  string
	Price string
}

// Product is a catalog entry. Price keeps the source text untouched; its
// decimal convention is only resolved when the price is used.
type Product struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// entry is a product plus the data derived from it at load time.
type entry struct {
	Product
	seq      int
	folded   string
	initials string
}

// BuildStats reports what Build did with its input.
type BuildStats struct {
	Rows    int
	Indexed int
	Skipped int
}

// Index groups products by initials and answers name lookups.
// It is never modified after Build and may be shared between goroutines.
type Index struct {
	entries []entry          // load order
	buckets map[string][]int // initials -> positions in entries
	keys    []string         // sorted bucket keys
	byPair  map[productKey]int
}

type productKey struct {
	name, price string
}

// Group is a bucket of the index as shown in a product listing.
type Group struct {
	Initials string    `json:"initials"`
	Products []Product `json:"products"`
}

// Build indexes rows in order. Rows whose trimmed name or price is empty are
// dropped and counted in BuildStats.Skipped. Names without a leading letter in
// any token end up under the "" key.
func Build(rows []Row) (*Index, BuildStats) {
	idx := &Index{
		entries: make([]entry, 0, len(rows)),
		buckets: make(map[string][]int),
		byPair:  make(map[productKey]int),
	}
	stats := BuildStats{Rows: len(rows)}

	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		price := strings.TrimSpace(row.Price)
		if name == "" || price == "" {
			stats.Skipped++
			continue
		}

		e := entry{
			Product:  Product{Name: name, Price: price},
			seq:      len(idx.entries),
			folded:   Normalize(name),
			initials: Initials(name),
		}
		idx.entries = append(idx.entries, e)
		idx.buckets[e.initials] = append(idx.buckets[e.initials], e.seq)
		if _, dup := idx.byPair[productKey{name, price}]; !dup {
			idx.byPair[productKey{name, price}] = e.seq
		}
	}

	idx.keys = make([]string, 0, len(idx.buckets))
	for k := range idx.buckets {
		idx.keys = append(idx.keys, k)
	}
	sort.Strings(idx.keys)

	stats.Indexed = len(idx.entries)
	return idx, stats
}

// Len returns the number of indexed products.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Find returns the catalog product with exactly this name and price, after
// trimming both. Carts only take products that Find knows.
func (idx *Index) Find(name, price string) (Product, bool) {
	pos, ok := idx.byPair[productKey{strings.TrimSpace(name), strings.TrimSpace(price)}]
	if !ok {
		return Product{}, false
	}
	return idx.entries[pos].Product, true
}

// Initials returns the bucket keys in alphabetical order.
func (idx *Index) Initials() []string {
	out := make([]string, len(idx.keys))
	copy(out, idx.keys)
	return out
}

// Bucket returns the products filed under key, in load order.
func (idx *Index) Bucket(key string) []Product {
	positions := idx.buckets[key]
	out := make([]Product, len(positions))
	for i, pos := range positions {
		out[i] = idx.entries[pos].Product
	}
	return out
}

// SearchByPrefix returns products whose normalized name starts with the
// normalized query, in load order. A blank query matches nothing.
func (idx *Index) SearchByPrefix(query string) []Product {
	return idx.match(query, strings.HasPrefix)
}

// SearchByContent returns products whose normalized name contains the
// normalized query anywhere, in load order. A blank query matches nothing.
func (idx *Index) SearchByContent(query string) []Product {
	return idx.match(query, strings.Contains)
}

func (idx *Index) match(query string, fn func(s, substr string) bool) []Product {
	q := Normalize(strings.TrimSpace(query))
	if q == "" {
		return []Product{}
	}
	results := []Product{}
	for _, e := range idx.entries {
		if fn(e.folded, q) {
			results = append(results, e.Product)
		}
	}
	return results
}

// Groups lists the buckets alphabetically, keeping only products whose
// normalized name contains filter. An empty filter keeps everything; buckets
// left without products are omitted.
func (idx *Index) Groups(filter string) []Group {
	f := Normalize(strings.TrimSpace(filter))
	groups := make([]Group, 0, len(idx.keys))
	for _, key := range idx.keys {
		var products []Product
		for _, pos := range idx.buckets[key] {
			e := idx.entries[pos]
			if f == "" || strings.Contains(e.folded, f) {
				products = append(products, e.Product)
			}
		}
		if len(products) > 0 {
			groups = append(groups, Group{Initials: key, Products: products})
		}
	}
	return groups
}

package dedup

import (
	"log"
	"strconv"
	"strings"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/newsitem"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

// ByKey keeps the first item for each key, preserving order.
func ByKey[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

type ItemKey struct {
	Company  string
	Category string
	Date     string
}

// SameRunKey identifies one story within a run.
func SameRunKey(it newsitem.Item) ItemKey {
	return ItemKey{
		Company:  strings.ToLower(strings.TrimSpace(it.Company)),
		Category: strings.ToLower(strings.TrimSpace(it.Category)),
		Date:     it.Date,
	}
}

// Items removes same-run duplicates and logs each one dropped.
func Items(items []newsitem.Item) []newsitem.Item {
	out := ByKey(items, SameRunKey)
	if dropped := len(items) - len(out); dropped > 0 {
		log.Printf("dedup same_run_duplicates dropped=%d kept=%d", dropped, len(out))
	}
	return out
}

// MergeOptions names the columns a URL merge looks at.
type MergeOptions struct {
	URLColumns []string
	// IDColumn, when present in the existing table, gets a number one
	// above the current maximum for every appended row.
	IDColumn string
	// Columns are added to the table when new rows introduce them.
	Columns []string
}

type MergeResult struct {
	Appended   int
	Duplicates int
}

// MergeByURL appends incoming rows whose URLs are not already present in
// any URL column of existing. Existing rows are never modified.
func MergeByURL(existing *sheet.Table, incoming []sheet.Row, opts MergeOptions) MergeResult {
	known := map[string]bool{}
	for _, c := range opts.URLColumns {
		for _, u := range existing.Column(c) {
			known[u] = true
		}
	}
	nextID := 0
	useID := opts.IDColumn != "" && existing.Has(opts.IDColumn)
	if useID {
		for _, r := range existing.Rows {
			if n, err := strconv.Atoi(r.Get(opts.IDColumn)); err == nil && n > nextID {
				nextID = n
			}
		}
	}

	var res MergeResult
	for _, r := range incoming {
		if seenURL(r, opts.URLColumns, known) {
			res.Duplicates++
			continue
		}
		if useID {
			nextID++
			r[opts.IDColumn] = strconv.Itoa(nextID)
		}
		existing.Append(r, opts.Columns...)
		res.Appended++
	}
	return res
}

func seenURL(r sheet.Row, cols []string, known map[string]bool) bool {
	for _, c := range cols {
		if u := r.Get(c); u != "" && known[u] {
			return true
		}
	}
	return false
}

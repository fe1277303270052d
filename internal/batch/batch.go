package batch

import (
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
)

const DefaultSize = 10

// Batch is a slice of same-type companies queried together.
type Batch struct {
	Type        string
	Companies   []roster.Company
	Number      int
	TotalInType int
}

func (b Batch) Names() []string {
	out := make([]string, len(b.Companies))
	for i, c := range b.Companies {
		out[i] = c.Name
	}
	return out
}

// Partition groups companies by type, in order of first appearance, and
// cuts each group into chunks of size. Roster order is kept within a group.
func Partition(companies []roster.Company, size int) []Batch {
	if size <= 0 {
		size = DefaultSize
	}
	var order []string
	groups := map[string][]roster.Company{}
	for _, c := range companies {
		if _, ok := groups[c.Type]; !ok {
			order = append(order, c.Type)
		}
		groups[c.Type] = append(groups[c.Type], c)
	}
	var out []Batch
	for _, typ := range order {
		members := groups[typ]
		for i := 0; i < len(members); i += size {
			end := min(i+size, len(members))
			out = append(out, Batch{
				Type:        typ,
				Companies:   members[i:end],
				Number:      i/size + 1,
				TotalInType: len(members),
			})
		}
	}
	return out
}

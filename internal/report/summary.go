// Package report renders validation results for people and tools.
package report

import (
	"sort"

	"github.com/nugget/hacheck/internal/entityid"
	"github.com/nugget/hacheck/internal/registry"
)

// maxExamples is how many entity ids a domain summary lists.
const maxExamples = 3

// DomainSummary counts the registered entities of one domain.
type DomainSummary struct {
	Domain   string   `json:"domain"`
	Count    int      `json:"count"`
	Enabled  int      `json:"enabled"`
	Disabled int      `json:"disabled"`
	Examples []string `json:"examples"`
}

// Summarize groups entities by domain. Domains are sorted by name and
// examples are the first entity ids of each domain in sorted order.
func Summarize(entities map[string]registry.Entity) []DomainSummary {
	ids := make([]string, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	byDomain := make(map[string]*DomainSummary)
	var order []string
	for _, id := range ids {
		domain := entityid.Domain(id)
		if domain == "" {
			domain = id
		}
		s, ok := byDomain[domain]
		if !ok {
			s = &DomainSummary{Domain: domain, Examples: []string{}}
			byDomain[domain] = s
			order = append(order, domain)
		}
		s.Count++
		if entities[id].Disabled() {
			s.Disabled++
		} else {
			s.Enabled++
		}
		if len(s.Examples) < maxExamples {
			s.Examples = append(s.Examples, id)
		}
	}

	sort.Strings(order)
	out := make([]DomainSummary, 0, len(order))
	for _, d := range order {
		out = append(out, *byDomain[d])
	}
	return out
}

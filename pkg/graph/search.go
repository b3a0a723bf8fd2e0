package graph

import (
	"fmt"
	"strings"
)

// Match is one search hit.
type Match struct {
	ID    string         `json:"id"`
	Props map[string]any `json:"props"`
}

// Search returns nodes whose name or id contains keyword, case-insensitively,
// in insertion order. It stops at maxResults; results are not ranked.
func (g *Graph) Search(keyword string, maxResults int) []Match {
	matches := []Match{}
	if maxResults <= 0 {
		return matches
	}

	kw := strings.ToLower(keyword)
	for _, id := range g.order {
		n := g.nodes[id]
		name := ""
		if v, ok := n.Props["name"]; ok && v != nil {
			name = strings.ToLower(fmt.Sprint(v))
		}
		if strings.Contains(name, kw) || strings.Contains(strings.ToLower(id), kw) {
			matches = append(matches, Match{ID: id, Props: n.Properties()})
			if len(matches) >= maxResults {
				break
			}
		}
	}
	return matches
}

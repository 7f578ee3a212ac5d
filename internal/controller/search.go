package controller

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/contacts/internal/database/repository"
)

// Search filters the current list. A contact matches when its name or
// phone contains query (case-insensitive), or when a word of its name is
// within SearchDistance edits of query. An empty query matches everything.
func (c *Controller) Search(query string) []repository.Contact {
	list := c.State().Contacts
	q := strings.ToLower(clean(query))
	if q == "" {
		return list
	}
	out := []repository.Contact{}
	for _, ct := range list {
		if matches(ct, q, c.opts.SearchDistance) {
			out = append(out, ct)
		}
	}
	return out
}

func matches(ct repository.Contact, q string, maxDist int) bool {
	name := strings.ToLower(ct.Name)
	if strings.Contains(name, q) || strings.Contains(strings.ToLower(ct.Phone), q) {
		return true
	}
	// short queries would match almost any word by distance alone
	if maxDist <= 0 || len([]rune(q)) <= maxDist {
		return false
	}
	for _, word := range strings.Fields(name) {
		if levenshtein.ComputeDistance(word, q) <= maxDist {
			return true
		}
	}
	return false
}

// Package suggest provides an in-process prefix search provider backed by a patricia trie.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/typeahead/pkg/typeahead"
)

// Entry is one indexed candidate. Weight ranks entries within a response,
// highest first.
type Entry struct {
	ID      string
	Text    string
	Weight  int
	Payload map[string]any
}

// TrieProvider matches queries against indexed entries by case-insensitive
// prefix. It implements typeahead.Provider and is safe for concurrent use.
type TrieProvider struct {
	mu           sync.RWMutex
	trie         *patricia.Trie
	totalEntries int
	maxWeight    int
	minWeight    int
	nextID       int
}

// NewTrieProvider creates an empty provider. Entries below minWeight are
// never returned.
func NewTrieProvider(minWeight int) *TrieProvider {
	return &TrieProvider{
		trie:      patricia.NewTrie(),
		minWeight: minWeight,
	}
}

// Add indexes an entry under its lowercased text. An entry with an empty ID
// gets a provider-assigned one, unique within this provider. Text is folded
// to lowercase; Search re-applies the query's capitalization on the way out.
func (p *TrieProvider) Add(e Entry) {
	if e.Text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.ID == "" {
		p.nextID++
		e.ID = fmt.Sprintf("t%06d", p.nextID)
	}
	e.Text = strings.ToLower(e.Text)
	p.trie.Insert(patricia.Prefix(e.Text), e)
	p.totalEntries++
	if e.Weight > p.maxWeight {
		p.maxWeight = e.Weight
	}
}

// Search visits the subtree under the lowercased query and returns matches
// ordered by weight, highest first. The original capitalization pattern of
// the query is re-applied to the returned titles.
func (p *TrieProvider) Search(ctx context.Context, query string, limit int) ([]typeahead.Result, error) {
	lowerQuery := strings.ToLower(query)

	capitalPositions := make([]bool, 0, len(query))
	for _, r := range query {
		capitalPositions = append(capitalPositions, r >= 'A' && r <= 'Z')
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var matches []Entry
	err := p.trie.VisitSubtree(patricia.Prefix(lowerQuery), func(prefix patricia.Prefix, item patricia.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry, ok := item.(Entry)
		if !ok {
			log.Errorf("Unknown item type: %T for prefix %s", item, prefix)
			return nil
		}
		if entry.Weight < p.minWeight {
			return nil
		}
		matches = append(matches, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Weight > matches[j].Weight
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]typeahead.Result, len(matches))
	for i, m := range matches {
		results[i] = typeahead.Result{
			ID:      m.ID,
			Title:   ApplyCapitalization(m.Text, capitalPositions),
			Payload: m.Payload,
		}
	}
	return results, nil
}

// Stats returns statistics about the indexed entries.
func (p *TrieProvider) Stats() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return map[string]int{
		"totalEntries": p.totalEntries,
		"maxWeight":    p.maxWeight,
		"minWeight":    p.minWeight,
	}
}

// ApplyCapitalization re-applies the query's capitalization pattern to a
// lowercased match.
func ApplyCapitalization(word string, capitalPositions []bool) string {
	if len(capitalPositions) == 0 {
		return word
	}

	wordRunes := []rune(word)
	for i := 0; i < len(wordRunes) && i < len(capitalPositions); i++ {
		if capitalPositions[i] && wordRunes[i] >= 'a' && wordRunes[i] <= 'z' {
			wordRunes[i] = wordRunes[i] - 'a' + 'A'
		}
	}
	return string(wordRunes)
}

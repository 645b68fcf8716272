// Package knowledge provides the built-in retrieval backend: a token-overlap
// scored document corpus with optional directory loading and hot reload.
package knowledge

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"

	errbuilder "github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/halcyonworks/agentroute"
)

// Document is one retrievable passage.
type Document struct {
	ID     string
	Title  string
	Text   string
	Source string
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Corpus implements agentroute.Retriever over an in-memory document set.
// Scoring is lexical: the fraction of query tokens that appear in the
// document. Zero-score documents never surface.
type Corpus struct {
	mu   sync.RWMutex
	docs []Document

	// tokens caches the token set per document, aligned with docs.
	tokens []map[string]bool
}

// NewCorpus creates a corpus holding the given documents.
func NewCorpus(docs ...Document) *Corpus {
	c := &Corpus{}
	c.Replace(docs)
	return c
}

// Replace swaps the entire document set. Used by the directory watcher on
// reload.
func (c *Corpus) Replace(docs []Document) {
	tokens := make([]map[string]bool, len(docs))
	for i, doc := range docs {
		tokens[i] = tokenSet(doc.Title + " " + doc.Text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = docs
	c.tokens = tokens
}

// Add appends one document.
func (c *Corpus) Add(doc Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, doc)
	c.tokens = append(c.tokens, tokenSet(doc.Title+" "+doc.Text))
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Search returns up to k chunks ranked by relevance, highest first. An empty
// result is not an error.
func (c *Corpus) Search(ctx context.Context, query string, k int) ([]agentroute.ContextChunk, error) {
	if err := errbuilder.WrapIfContextDone(ctx, nil); err != nil {
		return nil, err
	}

	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 || k <= 0 {
		return nil, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	type scored struct {
		doc   Document
		score float64
	}

	var results []scored
	for i, doc := range c.docs {
		overlap := 0
		for token := range queryTokens {
			if c.tokens[i][token] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		results = append(results, scored{
			doc:   doc,
			score: float64(overlap) / float64(len(queryTokens)),
		})
	}

	// Sort by score descending; ties break by document order for stability.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > k {
		results = results[:k]
	}

	chunks := make([]agentroute.ContextChunk, len(results))
	for i, r := range results {
		chunks[i] = agentroute.ContextChunk{
			Text:      r.doc.Title + "\n" + r.doc.Text,
			SourceID:  r.doc.Source,
			Relevance: r.score,
		}
	}
	return chunks, nil
}

// tokenSet lowercases and tokenizes text into a set of alphanumeric tokens.
func tokenSet(text string) map[string]bool {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

package pipeline

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/ohmygaugh/factgpt/internal/domain/document"
)

// Field weights for query term hits.
const (
	tagWeight     = 3
	titleWeight   = 2
	summaryWeight = 1
)

type indexedDoc struct {
	title   map[string]int
	summary map[string]int
	tags    map[string]struct{}
}

type hit struct {
	doc   int
	score int
}

func indexDocument(d document.Document) indexedDoc {
	idx := indexedDoc{
		title:   termCounts(d.Title),
		summary: termCounts(d.Summary),
		tags:    make(map[string]struct{}),
	}
	for _, tag := range d.AllTags() {
		for _, term := range tokenize(tag) {
			idx.tags[term] = struct{}{}
		}
	}
	return idx
}

func (p *Pipeline) rank(terms []string, tagFilter bool) []hit {
	if len(terms) == 0 {
		return nil
	}

	var hits []hit
	for i, idx := range p.index {
		score, tagged := 0, false
		for _, term := range terms {
			if _, ok := idx.tags[term]; ok {
				score += tagWeight
				tagged = true
			}
			score += titleWeight*idx.title[term] + summaryWeight*idx.summary[term]
		}
		if score == 0 || (tagFilter && !tagged) {
			continue
		}
		hits = append(hits, hit{doc: i, score: score})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(hits) > p.topK {
		hits = hits[:p.topK]
	}
	return hits
}

// tokenize splits s into distinct lower-cased letter/digit runs, in order of first appearance.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func termCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		counts[f]++
	}
	return counts
}

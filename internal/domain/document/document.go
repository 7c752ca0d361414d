// Package document defines the knowledge-base entry returned by the pipeline
// and the date handling used to order search results.
package document

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/ohmygaugh/factgpt/internal/domain"
)

// DateLayout is the only accepted document date format.
const DateLayout = "2006-01-02"

// Document is one retrievable knowledge-base entry.
type Document struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	ExtraTags []string `json:"extra-tags"`
	URL       string   `json:"url"`
	Date      string   `json:"date"`
}

// AllTags returns Tags followed by ExtraTags.
func (d Document) AllTags() []string {
	out := make([]string, 0, len(d.Tags)+len(d.ExtraTags))
	out = append(out, d.Tags...)
	return append(out, d.ExtraTags...)
}

// ParseDate parses the document date strictly as YYYY-MM-DD.
func (d Document) ParseDate() (time.Time, error) {
	t, err := time.Parse(DateLayout, d.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (%s): %w", domain.ErrDateParse, d.Date, d.Title, err)
	}
	return t, nil
}

// SortByDateDesc returns the documents ordered newest first.
// Documents sharing a date keep their relative order. A single unparsable
// date fails the whole sort; the input slice is never modified.
func SortByDateDesc(docs []Document) ([]Document, error) {
	type dated struct {
		at  time.Time
		doc Document
	}

	items := make([]dated, len(docs))
	for i, d := range docs {
		at, err := d.ParseDate()
		if err != nil {
			return nil, err
		}
		items[i] = dated{at: at, doc: d}
	}

	slices.SortStableFunc(items, func(a, b dated) int {
		return cmp.Compare(b.at.Unix(), a.at.Unix())
	})

	out := make([]Document, len(items))
	for i, it := range items {
		out[i] = it.doc
	}
	return out, nil
}

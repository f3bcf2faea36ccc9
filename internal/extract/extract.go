// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns one parsed PDF into ranked outline sections and
// bounded page excerpts. Ranking is document order: the position of an
// outline entry in a depth-first walk, or page order for excerpts.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/pkg/types"
)

var (
	// ErrDocumentRead marks a document that could not be read as a whole.
	ErrDocumentRead = errors.New("document unreadable")

	// ErrOutlineResolution marks a single outline entry whose destination
	// could not be resolved to a page.
	ErrOutlineResolution = errors.New("outline entry unresolved")
)

// Document is the view of a parsed PDF the extractors need.
type Document interface {
	// Name returns the document filename.
	Name() string

	// NumPages returns the page count.
	NumPages() int

	// PageText returns the plain text of 1-based page n.
	PageText(n int) (string, error)

	// Outline returns the bookmark tree, or nil when there is none.
	Outline() ([]types.OutlineNode, error)
}

// WalkOutline flattens nodes depth-first in pre-order, resolving each
// bookmark's page. Bookmarks whose destination fails to resolve are logged
// and skipped; groups contribute only their children.
func WalkOutline(nodes []types.OutlineNode, log *zap.Logger) []types.OutlineEntry {
	var entries []types.OutlineEntry
	var walk func([]types.OutlineNode)
	walk = func(nodes []types.OutlineNode) {
		for _, node := range nodes {
			switch n := node.(type) {
			case types.Bookmark:
				page, err := resolve(n)
				if err != nil {
					log.Warn("skipping outline entry",
						zap.String("title", n.Title),
						zap.Error(fmt.Errorf("%w: %w", ErrOutlineResolution, err)))
					continue
				}
				entries = append(entries, types.OutlineEntry{Title: n.Title, Page: page})
			case types.Group:
				walk(n.Children)
			}
		}
	}
	walk(nodes)
	return entries
}

func resolve(b types.Bookmark) (int, error) {
	if b.Target == nil {
		return 0, errors.New("no destination")
	}
	page, err := b.Target.Page()
	if err != nil {
		return 0, err
	}
	if page < 1 {
		return 0, fmt.Errorf("page %d is not a positive page number", page)
	}
	return page, nil
}

// Sections returns one section per resolvable outline entry, ranked 1..N in
// traversal order. A document whose outline yields no entries gets a single
// fallback section. An unreadable outline is an error and yields no sections.
func Sections(doc Document, log *zap.Logger) ([]types.DocumentSection, error) {
	nodes, err := doc.Outline()
	if err != nil {
		return nil, fmt.Errorf("%w: reading outline of %s: %w", ErrDocumentRead, doc.Name(), err)
	}

	entries := WalkOutline(nodes, log.With(zap.String("document", doc.Name())))
	if len(entries) == 0 {
		return []types.DocumentSection{types.FallbackSection(doc.Name())}, nil
	}

	sections := make([]types.DocumentSection, len(entries))
	for i, e := range entries {
		sections[i] = types.DocumentSection{
			Document:       doc.Name(),
			SectionTitle:   strings.TrimSpace(e.Title),
			ImportanceRank: i + 1,
			PageNumber:     e.Page,
		}
	}
	return sections, nil
}

// Excerpts returns one excerpt per non-empty page among the first
// pageWindow pages, in page order, each cut to maxWords words. A page whose
// text cannot be extracted fails the whole document.
func Excerpts(doc Document, pageWindow, maxWords int) ([]types.SubsectionAnalysis, error) {
	window := min(pageWindow, doc.NumPages())

	var excerpts []types.SubsectionAnalysis
	for page := 1; page <= window; page++ {
		text, err := doc.PageText(page)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %w", ErrDocumentRead, doc.Name(), page, err)
		}
		refined := Refine(text, maxWords)
		if refined == "" {
			continue
		}
		excerpts = append(excerpts, types.SubsectionAnalysis{
			Document:    doc.Name(),
			RefinedText: refined,
			PageNumber:  page,
		})
	}
	return excerpts, nil
}

// Refine splits text on whitespace and rejoins at most maxWords tokens with
// single spaces. Whitespace-only text refines to "".
func Refine(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords >= 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}

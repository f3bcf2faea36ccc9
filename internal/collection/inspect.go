// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collection

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/internal/extract"
	"github.com/pdiddy/persona-digest/internal/pdfdoc"
	"github.com/pdiddy/persona-digest/pkg/types"
)

// Inspection summarizes the structure of one PDF file.
type Inspection struct {
	File  string `json:"file" yaml:"file"`
	Pages int    `json:"pages" yaml:"pages"`

	// HasOutline is true when the document has at least one bookmark.
	HasOutline bool `json:"has_outline" yaml:"has_outline"`

	// OutlineEntries counts every bookmark; ResolvedEntries counts those
	// whose destination resolves to a page.
	OutlineEntries  int `json:"outline_entries" yaml:"outline_entries"`
	ResolvedEntries int `json:"resolved_entries" yaml:"resolved_entries"`

	Info  pdfdoc.Info `json:"info" yaml:"info"`
	Error string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// Inspect opens path and reports its page count, outline and document
// information. Failures are recorded in the Error field.
func Inspect(path string, log *zap.Logger) Inspection {
	in := Inspection{File: filepath.Base(path)}

	doc, err := pdfdoc.Open(path)
	if err != nil {
		in.Error = err.Error()
		return in
	}
	defer doc.Close()

	in.Pages = doc.NumPages()

	nodes, err := doc.Outline()
	if err != nil {
		in.Error = err.Error()
		return in
	}
	in.OutlineEntries = countBookmarks(nodes)
	in.HasOutline = in.OutlineEntries > 0
	in.ResolvedEntries = len(extract.WalkOutline(nodes, log))

	info, err := doc.Info()
	if err != nil {
		in.Error = err.Error()
		return in
	}
	in.Info = info
	return in
}

func countBookmarks(nodes []types.OutlineNode) int {
	n := 0
	for _, node := range nodes {
		switch v := node.(type) {
		case types.Bookmark:
			n++
		case types.Group:
			n += countBookmarks(v.Children)
		}
	}
	return n
}

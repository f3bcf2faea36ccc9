// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftest builds small, valid PDF files for tests. Documents carry
// one line-oriented text stream per page and an optional bookmark tree with
// explicit, GoTo-action, named, or broken destinations.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"unicode/utf16"
)

// BrokenPage as a Bookmark.Page produces a destination that points at an
// object missing from the file.
const BrokenPage = -1

// Bookmark describes one outline item.
type Bookmark struct {
	// Title is the item title. Empty produces an untitled grouping item.
	Title string

	// Page is the 1-based destination page. Zero omits the destination;
	// BrokenPage references a missing object.
	Page int

	// Named routes the destination through the catalog's /Names tree.
	Named string

	// GoTo expresses the destination as a /A GoTo action instead of /Dest.
	GoTo bool

	Children []Bookmark
}

// Document describes a PDF to build.
type Document struct {
	// Pages holds the text of each page. Lines are separated by "\n".
	Pages []string

	// Outline is the bookmark tree. A nil outline omits /Outlines; a
	// non-nil empty outline writes an outline root without items.
	Outline []Bookmark

	// Info populates the trailer /Info dictionary.
	Info map[string]string

	// BlankPages lists 1-based pages written without /Contents or
	// /Resources. Identical blank pages serialize to identical dictionaries.
	BlankPages []int

	// SplitPageTree places the pages under two intermediate /Pages nodes.
	SplitPageTree bool

	// CyclicOutline links the last top-level bookmark back to the first.
	CyclicOutline bool
}

type namedDest struct {
	name string
	page int
}

type builder struct {
	objs    []string
	pageIDs []int
	names   []namedDest

	outlineRoot int
	cyclic      bool
}

func (b *builder) alloc() int {
	b.objs = append(b.objs, "")
	return len(b.objs)
}

func (b *builder) set(id int, body string) {
	b.objs[id-1] = body
}

// Build returns the bytes of a PDF file described by doc.
func Build(doc Document) []byte {
	b := &builder{}
	catalogID := b.alloc()
	pagesID := b.alloc()
	fontID := b.alloc()
	b.set(fontID, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	blank := make(map[int]bool, len(doc.BlankPages))
	for _, n := range doc.BlankPages {
		blank[n] = true
	}

	parents := []int{pagesID}
	if doc.SplitPageTree && len(doc.Pages) > 1 {
		parents = []int{b.alloc(), b.alloc()}
	}
	half := (len(doc.Pages) + 1) / 2

	kids := make([][]string, len(parents))
	for i, text := range doc.Pages {
		node := 0
		if len(parents) > 1 && i >= half {
			node = 1
		}
		parent := parents[node]

		pageID := b.alloc()
		if blank[i+1] {
			b.set(pageID, fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] >>", parent))
		} else {
			contentID := b.alloc()
			stream := contentStream(text)
			b.set(contentID, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
			b.set(pageID, fmt.Sprintf(
				"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
				parent, fontID, contentID))
		}
		b.pageIDs = append(b.pageIDs, pageID)
		kids[node] = append(kids[node], fmt.Sprintf("%d 0 R", pageID))
	}
	if len(parents) > 1 {
		for i, id := range parents {
			b.set(id, fmt.Sprintf("<< /Type /Pages /Parent %d 0 R /Kids [%s] /Count %d >>",
				pagesID, strings.Join(kids[i], " "), len(kids[i])))
		}
		b.set(pagesID, fmt.Sprintf("<< /Type /Pages /Kids [%d 0 R %d 0 R] /Count %d >>",
			parents[0], parents[1], len(doc.Pages)))
	} else {
		b.set(pagesID, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids[0], " "), len(doc.Pages)))
	}

	var catalog strings.Builder
	fmt.Fprintf(&catalog, "<< /Type /Catalog /Pages %d 0 R", pagesID)
	if doc.Outline != nil {
		rootID := b.alloc()
		b.outlineRoot, b.cyclic = rootID, doc.CyclicOutline
		first, last, count := b.outline(doc.Outline, rootID)
		if count > 0 {
			b.set(rootID, fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>", first, last, count))
		} else {
			b.set(rootID, "<< /Type /Outlines /Count 0 >>")
		}
		fmt.Fprintf(&catalog, " /Outlines %d 0 R", rootID)
	}
	if len(b.names) > 0 {
		fmt.Fprintf(&catalog, " /Names << /Dests %d 0 R >>", b.nameTree())
	}
	catalog.WriteString(" >>")
	b.set(catalogID, catalog.String())

	infoRef := ""
	if len(doc.Info) > 0 {
		infoID := b.alloc()
		keys := make([]string, 0, len(doc.Info))
		for k := range doc.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var info strings.Builder
		info.WriteString("<<")
		for _, k := range keys {
			fmt.Fprintf(&info, " /%s %s", k, pdfString(doc.Info[k]))
		}
		info.WriteString(" >>")
		b.set(infoID, info.String())
		infoRef = fmt.Sprintf(" /Info %d 0 R", infoID)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(b.objs))
	for i, body := range b.objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R%s >>\nstartxref\n%d\n%%%%EOF\n",
		len(b.objs)+1, catalogID, infoRef, xref)
	return buf.Bytes()
}

// outline writes the items under parent and returns the first and last item
// ids and the number of visible descendants.
func (b *builder) outline(items []Bookmark, parent int) (first, last, count int) {
	if len(items) == 0 {
		return 0, 0, 0
	}
	ids := make([]int, len(items))
	for i := range items {
		ids[i] = b.alloc()
	}
	for i, item := range items {
		var d strings.Builder
		d.WriteString("<<")
		if item.Title != "" {
			fmt.Fprintf(&d, " /Title %s", pdfString(item.Title))
		}
		fmt.Fprintf(&d, " /Parent %d 0 R", parent)
		if i > 0 {
			fmt.Fprintf(&d, " /Prev %d 0 R", ids[i-1])
		}
		if i < len(items)-1 {
			fmt.Fprintf(&d, " /Next %d 0 R", ids[i+1])
		} else if b.cyclic && parent == b.outlineRoot && len(items) > 1 {
			fmt.Fprintf(&d, " /Next %d 0 R", ids[0])
		}
		if dest := b.dest(item); dest != "" {
			if item.GoTo {
				fmt.Fprintf(&d, " /A << /S /GoTo /D %s >>", dest)
			} else {
				fmt.Fprintf(&d, " /Dest %s", dest)
			}
		}
		if f, l, c := b.outline(item.Children, ids[i]); c > 0 {
			fmt.Fprintf(&d, " /First %d 0 R /Last %d 0 R /Count %d", f, l, c)
			count += c
		}
		d.WriteString(" >>")
		b.set(ids[i], d.String())
		count++
	}
	return ids[0], ids[len(ids)-1], count
}

func (b *builder) dest(item Bookmark) string {
	if item.Named != "" {
		b.names = append(b.names, namedDest{name: item.Named, page: item.Page})
		return pdfString(item.Named)
	}
	return b.explicitDest(item.Page)
}

func (b *builder) explicitDest(page int) string {
	switch {
	case page == 0:
		return ""
	case page == BrokenPage || page > len(b.pageIDs):
		return "[9999 0 R /Fit]"
	default:
		return fmt.Sprintf("[%d 0 R /Fit]", b.pageIDs[page-1])
	}
}

// nameTree writes a single-node name tree of named destinations.
func (b *builder) nameTree() int {
	sort.Slice(b.names, func(i, j int) bool { return b.names[i].name < b.names[j].name })
	var d strings.Builder
	d.WriteString("<< /Names [")
	for _, n := range b.names {
		fmt.Fprintf(&d, " %s %s", pdfString(n.name), b.explicitDest(n.page))
	}
	d.WriteString(" ] >>")
	id := b.alloc()
	b.set(id, d.String())
	return id
}

func contentStream(text string) string {
	var s strings.Builder
	s.WriteString("BT /F1 12 Tf 72 720 Td")
	for i, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		if i > 0 {
			s.WriteString(" 0 -14 Td")
		}
		fmt.Fprintf(&s, " %s Tj", literal(line))
	}
	s.WriteString(" ET")
	return s.String()
}

// pdfString encodes s as a literal string, or as UTF-16BE hex when it
// contains non-ASCII characters.
func pdfString(s string) string {
	for _, r := range s {
		if r > 0x7e {
			var hex strings.Builder
			hex.WriteString("<FEFF")
			for _, u := range utf16.Encode([]rune(s)) {
				fmt.Fprintf(&hex, "%04X", u)
			}
			hex.WriteString(">")
			return hex.String()
		}
	}
	return literal(s)
}

func literal(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return "(" + r.Replace(s) + ")"
}

// Write builds doc into dir/name and returns the file path.
func Write(t testing.TB, dir, name string, doc Document) string {
	t.Helper()
	return WriteBytes(t, dir, name, Build(doc))
}

// WriteBytes writes raw bytes to dir/name, for unreadable-file cases. dir
// is created if needed.
func WriteBytes(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

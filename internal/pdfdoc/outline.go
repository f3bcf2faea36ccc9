// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfdoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/persona-digest/pkg/types"
)

const (
	// maxOutlineItems caps the walk over outlines whose items are all
	// distinct but unreasonably many.
	maxOutlineItems  = 1 << 20
	maxOutlineDepth  = 64
	maxNameTreeDepth = 32
	maxPageTreeDepth = 64
)

var (
	// ErrNoDestination is returned for bookmarks without /Dest or GoTo action.
	ErrNoDestination = errors.New("bookmark has no destination")

	// ErrUnresolvedDestination is returned when a destination does not
	// point at a page of this document.
	ErrUnresolvedDestination = errors.New("destination does not resolve to a page")
)

// Outline returns the document's bookmark tree in document order. A titled
// item is followed by a Group holding its children; untitled items
// contribute only their children. A document without /Outlines returns nil.
func (d *Document) Outline() (nodes []types.OutlineNode, err error) {
	defer recoverMalformed(&err)

	root := d.reader.Trailer().Key("Root").Key("Outlines")
	if root.IsNull() {
		return nil, nil
	}
	w := &outlineWalk{seen: make(map[string]bool)}
	return d.outlineItems(root.Key("First"), 0, w)
}

// outlineWalk tracks visited items. An item's serialization carries its raw
// /Parent, /Prev and /Next references, so distinct items of a well-formed
// outline never collide and a repeat means the chain loops back.
type outlineWalk struct {
	items int
	seen  map[string]bool
}

func (d *Document) outlineItems(first pdf.Value, depth int, w *outlineWalk) ([]types.OutlineNode, error) {
	if depth > maxOutlineDepth {
		return nil, fmt.Errorf("%w: outline nested deeper than %d levels", ErrMalformed, maxOutlineDepth)
	}

	var nodes []types.OutlineNode
	for item := first; !item.IsNull(); item = item.Key("Next") {
		key := item.String()
		if w.seen[key] {
			break
		}
		w.seen[key] = true
		w.items++
		if w.items > maxOutlineItems {
			return nil, fmt.Errorf("%w: outline has more than %d items", ErrMalformed, maxOutlineItems)
		}

		if title := item.Key("Title"); title.Kind() == pdf.String {
			nodes = append(nodes, types.Bookmark{
				Title:  title.Text(),
				Target: &target{doc: d, item: item},
			})
		}

		kids := item.Key("First")
		if kids.IsNull() {
			continue
		}
		children, err := d.outlineItems(kids, depth+1, w)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			nodes = append(nodes, types.Group{Children: children})
		}
	}
	return nodes, nil
}

// target resolves one outline item's destination on demand.
type target struct {
	doc  *Document
	item pdf.Value
}

func (t *target) Page() (page int, err error) {
	defer recoverMalformed(&err)

	dest := t.item.Key("Dest")
	if dest.IsNull() {
		if action := t.item.Key("A"); action.Key("S").Name() == "GoTo" {
			dest = action.Key("D")
		}
	}
	if dest.IsNull() {
		return 0, ErrNoDestination
	}
	return t.doc.resolveDestination(dest)
}

// resolveDestination maps an explicit or named destination to a page.
func (d *Document) resolveDestination(dest pdf.Value) (int, error) {
	catalog := d.reader.Trailer().Key("Root")

	switch dest.Kind() {
	case pdf.Name:
		dest = catalog.Key("Dests").Key(dest.Name())
	case pdf.String:
		dest = lookupName(catalog.Key("Names").Key("Dests"), dest.RawString(), 0)
	}
	// Named destinations may be wrapped as << /D [...] >>.
	if dest.Kind() == pdf.Dict {
		dest = dest.Key("D")
	}
	if dest.Kind() != pdf.Array || dest.Len() == 0 {
		return 0, fmt.Errorf("%w: expected destination array, got %v", ErrUnresolvedDestination, dest.Kind())
	}

	if first := dest.Index(0); first.Kind() == pdf.Integer {
		// Page index form, used by remote destinations.
		n := int(first.Int64()) + 1
		if n >= 1 && n <= d.numPages {
			return n, nil
		}
		return 0, fmt.Errorf("%w: page index %d", ErrUnresolvedDestination, first.Int64())
	}

	// The decoder resolves references on access, so the page object is
	// identified from the array's raw serialization, e.g. "[6 0 R /Fit]".
	ref, ok := leadingRef(dest.String())
	if !ok {
		return 0, fmt.Errorf("%w: target %s", ErrUnresolvedDestination, dest.Index(0).String())
	}
	if n, ok := d.pages()[ref]; ok {
		return n, nil
	}
	return 0, fmt.Errorf("%w: target %s R", ErrUnresolvedDestination, ref)
}

// pages maps page object references ("6 0") to 1-based page numbers.
func (d *Document) pages() map[string]int {
	if d.pageIndex != nil {
		return d.pageIndex
	}
	d.pageIndex = make(map[string]int, d.numPages)
	var n int
	d.indexPages(d.reader.Trailer().Key("Root").Key("Pages"), 0, &n, make(map[string]bool))
	return d.pageIndex
}

// indexPages numbers the leaves under node in the order the reader counts
// them for page text.
func (d *Document) indexPages(node pdf.Value, depth int, n *int, visited map[string]bool) {
	if depth > maxPageTreeDepth {
		return
	}
	kids := node.Key("Kids")
	refs, ok := parseRefs(kids.String())
	if !ok || len(refs) != kids.Len() {
		refs = nil
	}
	for i := 0; i < kids.Len(); i++ {
		var ref string
		if refs != nil {
			ref = refs[i]
		}
		kid := kids.Index(i)
		switch kid.Key("Type").Name() {
		case "Pages":
			if ref != "" {
				if visited[ref] {
					continue
				}
				visited[ref] = true
			}
			d.indexPages(kid, depth+1, n, visited)
		case "Page":
			*n++
			if ref == "" || *n > d.numPages {
				continue
			}
			if _, dup := d.pageIndex[ref]; !dup {
				d.pageIndex[ref] = *n
			}
		}
	}
}

// parseRefs splits a serialized array of indirect references such as
// "[3 0 R 5 0 R]" into "3 0" style keys. ok is false when any element is
// not a reference.
func parseRefs(s string) (refs []string, ok bool) {
	f := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
	if len(f)%3 != 0 {
		return nil, false
	}
	for i := 0; i < len(f); i += 3 {
		if !isRef(f[i : i+3]) {
			return nil, false
		}
		refs = append(refs, f[i]+" "+f[i+1])
	}
	return refs, true
}

// leadingRef returns the reference that opens a serialized array.
func leadingRef(s string) (string, bool) {
	f := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
	if len(f) < 3 || !isRef(f[:3]) {
		return "", false
	}
	return f[0] + " " + f[1], true
}

func isRef(f []string) bool {
	if f[2] != "R" {
		return false
	}
	if _, err := strconv.ParseUint(f[0], 10, 32); err != nil {
		return false
	}
	_, err := strconv.ParseUint(f[1], 10, 16)
	return err == nil
}

// lookupName searches a name tree for key.
func lookupName(node pdf.Value, key string, depth int) pdf.Value {
	if node.IsNull() || depth > maxNameTreeDepth {
		return pdf.Value{}
	}
	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		if names.Index(i).RawString() == key {
			return names.Index(i + 1)
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if v := lookupName(kids.Index(i), key, depth+1); !v.IsNull() {
			return v
		}
	}
	return pdf.Value{}
}

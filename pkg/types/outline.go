// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// OutlineNode is one node of a document's bookmark tree. It is either a
// Bookmark (a titled entry with a destination) or a Group (untitled nodes
// whose children are still part of the outline).
type OutlineNode interface {
	outlineNode()
}

// PageTarget resolves a bookmark destination to a 1-based page number.
// Resolution is deferred so a single broken destination fails only its
// own entry.
type PageTarget interface {
	Page() (int, error)
}

// Bookmark is a titled outline entry.
type Bookmark struct {
	Title  string
	Target PageTarget
}

// Group holds nested outline nodes. A titled entry's children follow it as
// a Group, so a depth-first walk visits the parent before its children.
type Group struct {
	Children []OutlineNode
}

func (Bookmark) outlineNode() {}
func (Group) outlineNode()    {}

// OutlineEntry is a bookmark whose destination resolved to a page.
type OutlineEntry struct {
	Title string
	Page  int
}

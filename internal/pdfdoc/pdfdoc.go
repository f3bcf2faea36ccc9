// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfdoc reads page text, the bookmark tree, and document info from
// PDF files using github.com/ledongthuc/pdf.
package pdfdoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

// ErrMalformed wraps failures raised while decoding PDF structures.
var ErrMalformed = errors.New("malformed PDF")

// Document is an open PDF file.
type Document struct {
	name     string
	file     *os.File
	reader   *pdf.Reader
	numPages int

	// pageIndex maps a page object reference to its 1-based number.
	// Built on first destination lookup.
	pageIndex map[string]int
}

// Info holds the document information dictionary entries.
type Info struct {
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`
	Subject  string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Creator  string `json:"creator,omitempty" yaml:"creator,omitempty"`
	Producer string `json:"producer,omitempty" yaml:"producer,omitempty"`
}

// Open opens and parses the PDF at path. The caller must Close the document.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat PDF %s: %w", path, err)
	}

	doc, err := newDocument(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading PDF %s: %w", path, err)
	}
	doc.name = filepath.Base(path)
	return doc, nil
}

func newDocument(f *os.File, size int64) (doc *Document, err error) {
	defer recoverMalformed(&err)

	r, err := pdf.NewReader(f, size)
	if err != nil {
		return nil, err
	}
	return &Document{
		file:     f,
		reader:   r,
		numPages: r.NumPage(),
	}, nil
}

// Name returns the base filename of the document.
func (d *Document) Name() string { return d.name }

// NumPages returns the number of pages.
func (d *Document) NumPages() int { return d.numPages }

// PageText returns the plain text of 1-based page n. A page without a
// page object yields empty text.
func (d *Document) PageText(n int) (text string, err error) {
	defer recoverMalformed(&err)

	if n < 1 || n > d.numPages {
		return "", fmt.Errorf("page %d out of range 1..%d", n, d.numPages)
	}
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting text from page %d: %w", n, err)
	}
	return text, nil
}

// Info returns the trailer's document information dictionary.
func (d *Document) Info() (info Info, err error) {
	defer recoverMalformed(&err)

	v := d.reader.Trailer().Key("Info")
	if v.IsNull() {
		return Info{}, nil
	}
	return Info{
		Title:    v.Key("Title").Text(),
		Author:   v.Key("Author").Text(),
		Subject:  v.Key("Subject").Text(),
		Creator:  v.Key("Creator").Text(),
		Producer: v.Key("Producer").Text(),
	}, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.file.Close()
}

// recoverMalformed converts a panic from the PDF decoder into an error.
// The decoder reports structural problems by panicking.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrMalformed, r)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/persona-digest/internal/pdftest"
	"github.com/pdiddy/persona-digest/pkg/types"
)

var fixedNow = time.Date(2025, 7, 10, 14, 30, 0, 0, time.FixedZone("", 2*60*60))

// fakeDoc implements Document with canned content.
type fakeDoc struct {
	name       string
	pages      []string
	outline    []types.OutlineNode
	outlineErr error
	closed     bool
}

func (f *fakeDoc) Name() string  { return f.name }
func (f *fakeDoc) NumPages() int { return len(f.pages) }

func (f *fakeDoc) PageText(n int) (string, error) {
	return f.pages[n-1], nil
}

func (f *fakeDoc) Outline() ([]types.OutlineNode, error) {
	return f.outline, f.outlineErr
}

func (f *fakeDoc) Close() error {
	f.closed = true
	return nil
}

type pageTarget int

func (p pageTarget) Page() (int, error) { return int(p), nil }

// sectionedDoc returns a document with n outline entries pointing at pages
// 1..n and one word of text per page.
func sectionedDoc(name string, n int) *fakeDoc {
	doc := &fakeDoc{name: name}
	for i := 1; i <= n; i++ {
		doc.pages = append(doc.pages, fmt.Sprintf("%s page %d", name, i))
		doc.outline = append(doc.outline, types.Bookmark{
			Title:  fmt.Sprintf("%s section %d", name, i),
			Target: pageTarget(i),
		})
	}
	return doc
}

// fakeOpener serves documents by filename. Files missing from docs fail to
// open.
type fakeOpener struct {
	mu     sync.Mutex
	docs   map[string]*fakeDoc
	opened []string
}

func (o *fakeOpener) Open(path string) (Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	name := filepath.Base(path)
	o.opened = append(o.opened, name)
	doc, ok := o.docs[name]
	if !ok {
		return nil, errors.New("malformed PDF")
	}
	return doc, nil
}

// touch creates empty files named names in dir.
func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func newTestAggregator(open OpenFunc, cfg types.ExtractionConfig) *Aggregator {
	a := NewAggregator(cfg, zap.NewNop())
	if open != nil {
		a.Open = open
	}
	a.Now = func() time.Time { return fixedNow }
	return a
}

// mapCache is an in-memory Cache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]types.DocumentExtraction
	puts    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]types.DocumentExtraction)}
}

func (c *mapCache) Get(key string) (types.DocumentExtraction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok, nil
}

func (c *mapCache) Put(key string, e types.DocumentExtraction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
	c.puts++
	return nil
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.pdf", "A.pdf", "c.PDF", "notes.txt", "pdf")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.pdf", "b.pdf", "c.PDF"}, files)
}

func TestDiscover_NoInput(t *testing.T) {
	empty := t.TempDir()
	touch(t, empty, "readme.md")

	tests := []struct {
		name string
		dir  string
	}{
		{name: "missing directory", dir: filepath.Join(t.TempDir(), "nope")},
		{name: "no pdf files", dir: empty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Discover(tt.dir)
			assert.ErrorIs(t, err, ErrCollectionInput)
		})
	}
}

func TestProcess_TwoDocuments(t *testing.T) {
	dir := t.TempDir()
	pdftest.Write(t, dir, "A.pdf", pdftest.Document{
		Pages: []string{"Intro text", "More", "Methods text"},
		Outline: []pdftest.Bookmark{
			{Title: "Intro", Page: 1},
			{Title: "Methods", Page: 3},
		},
	})
	pdftest.Write(t, dir, "B.pdf", pdftest.Document{
		Pages: []string{"Hello world", ""},
	})

	a := newTestAggregator(nil, types.ExtractionConfig{})
	var buf bytes.Buffer
	report, summary, err := a.Process(context.Background(), types.CollectionConfig{
		ID:          1,
		Name:        "Test",
		Persona:     "Analyst",
		JobToBeDone: "Summarize",
		InputDir:    dir,
	}, &buf)
	require.NoError(t, err)

	assert.Equal(t, types.ReportMetadata{
		CollectionID:        1,
		CollectionName:      "Test",
		Persona:             "Analyst",
		JobToBeDone:         "Summarize",
		InputDocuments:      []string{"A.pdf", "B.pdf"},
		ProcessingTimestamp: "2025-07-10T14:30:00+02:00",
	}, report.Metadata)

	assert.Equal(t, []types.DocumentSection{
		{Document: "A.pdf", SectionTitle: "Intro", ImportanceRank: 1, PageNumber: 1},
		{Document: "B.pdf", SectionTitle: "Document Content", ImportanceRank: 1, PageNumber: 1},
		{Document: "A.pdf", SectionTitle: "Methods", ImportanceRank: 2, PageNumber: 3},
	}, report.ExtractedSections)

	require.Len(t, report.SubsectionAnalysis, 4)
	assert.Equal(t, types.SubsectionAnalysis{Document: "A.pdf", RefinedText: "Intro text", PageNumber: 1}, report.SubsectionAnalysis[0])
	assert.Equal(t, types.SubsectionAnalysis{Document: "B.pdf", RefinedText: "Hello world", PageNumber: 1}, report.SubsectionAnalysis[3])

	assert.Equal(t, 2, summary.Documents)
	assert.Zero(t, summary.Failed)
	assert.Contains(t, buf.String(), "processed: A.pdf (2 sections, 3 excerpts)")
	assert.Contains(t, buf.String(), "processed: B.pdf (1 sections, 1 excerpts)")
}

func TestProcess_UnreadableDocumentIsSkipped(t *testing.T) {
	dir := t.TempDir()
	pdftest.WriteBytes(t, dir, "bad.pdf", []byte(strings.Repeat("garbage ", 64)))
	pdftest.Write(t, dir, "good.pdf", pdftest.Document{
		Pages:   []string{"Only page"},
		Outline: []pdftest.Bookmark{{Title: "Start", Page: 1}},
	})

	a := newTestAggregator(nil, types.ExtractionConfig{})
	var buf bytes.Buffer
	report, summary, err := a.Process(context.Background(), types.CollectionConfig{InputDir: dir}, &buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"bad.pdf", "good.pdf"}, report.Metadata.InputDocuments)
	assert.Equal(t, []types.DocumentSection{
		{Document: "good.pdf", SectionTitle: "Start", ImportanceRank: 1, PageNumber: 1},
	}, report.ExtractedSections)
	assert.Equal(t, []types.SubsectionAnalysis{
		{Document: "good.pdf", RefinedText: "Only page", PageNumber: 1},
	}, report.SubsectionAnalysis)

	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, buf.String(), "failed:    bad.pdf")
}

func TestProcess_AllDocumentsFailStillReports(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x.pdf", "y.pdf")
	opener := &fakeOpener{docs: map[string]*fakeDoc{}}

	a := newTestAggregator(opener.Open, types.ExtractionConfig{})
	report, summary, err := a.Process(context.Background(), types.CollectionConfig{InputDir: dir}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, []string{"x.pdf", "y.pdf"}, report.Metadata.InputDocuments)
	assert.NotNil(t, report.ExtractedSections)
	assert.Empty(t, report.ExtractedSections)
	assert.NotNil(t, report.SubsectionAnalysis)
	assert.Empty(t, report.SubsectionAnalysis)
	assert.Equal(t, 2, summary.Failed)
}

func TestProcess_OutlineErrorKeepsExcerpts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x.pdf")
	doc := &fakeDoc{name: "x.pdf", pages: []string{"text"}, outlineErr: errors.New("bad outline")}
	opener := &fakeOpener{docs: map[string]*fakeDoc{"x.pdf": doc}}

	a := newTestAggregator(opener.Open, types.ExtractionConfig{})
	report, summary, err := a.Process(context.Background(), types.CollectionConfig{InputDir: dir}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Empty(t, report.ExtractedSections)
	assert.Len(t, report.SubsectionAnalysis, 1)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, doc.closed)
}

func TestProcess_EmptyDirectory(t *testing.T) {
	a := newTestAggregator(nil, types.ExtractionConfig{})
	_, _, err := a.Process(context.Background(), types.CollectionConfig{InputDir: t.TempDir()}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrCollectionInput)
}

func TestProcess_TopKBoundsAndOrder(t *testing.T) {
	dir := t.TempDir()
	opener := &fakeOpener{docs: map[string]*fakeDoc{}}
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		touch(t, dir, name)
		opener.docs[name] = sectionedDoc(name, 4)
	}

	for _, k := range []int{0, 1, 5, 12, 50} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			a := newTestAggregator(opener.Open, types.ExtractionConfig{TopK: k, PageWindow: 3})
			report, _, err := a.Process(context.Background(), types.CollectionConfig{InputDir: dir}, &bytes.Buffer{})
			require.NoError(t, err)

			if k == 0 {
				// Zero falls back to the default bound.
				k = types.DefaultTopK
			}
			assert.Len(t, report.ExtractedSections, min(k, 12))
			assert.Len(t, report.SubsectionAnalysis, min(k, 9))
			for i := 1; i < len(report.ExtractedSections); i++ {
				assert.LessOrEqual(t, report.ExtractedSections[i-1].ImportanceRank, report.ExtractedSections[i].ImportanceRank)
			}
		})
	}
}

func TestProcess_EqualRanksKeepDiscoveryOrder(t *testing.T) {
	dir := t.TempDir()
	opener := &fakeOpener{docs: map[string]*fakeDoc{}}
	names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}
	for _, name := range names {
		touch(t, dir, name)
		opener.docs[name] = sectionedDoc(name, 2)
	}

	a := newTestAggregator(opener.Open, types.ExtractionConfig{TopK: 8})
	report, _, err := a.Process(context.Background(), types.CollectionConfig{InputDir: dir}, &bytes.Buffer{})
	require.NoError(t, err)

	require.Len(t, report.ExtractedSections, 8)
	for i, name := range names {
		assert.Equal(t, name, report.ExtractedSections[i].Document)
		assert.Equal(t, 1, report.ExtractedSections[i].ImportanceRank)
		assert.Equal(t, name, report.ExtractedSections[i+4].Document)
		assert.Equal(t, 2, report.ExtractedSections[i+4].ImportanceRank)
	}
}

func TestProcess_ParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	opener := &fakeOpener{docs: map[string]*fakeDoc{}}
	for i := range 12 {
		name := fmt.Sprintf("doc%02d.pdf", i)
		touch(t, dir, name)
		opener.docs[name] = sectionedDoc(name, i%4)
	}
	col := types.CollectionConfig{InputDir: dir}

	seq := newTestAggregator(opener.Open, types.ExtractionConfig{TopK: 20, Workers: 1})
	want, _, err := seq.Process(context.Background(), col, &bytes.Buffer{})
	require.NoError(t, err)

	par := newTestAggregator(opener.Open, types.ExtractionConfig{TopK: 20, Workers: 4})
	got, _, err := par.Process(context.Background(), col, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestProcess_Cache(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf", "broken.pdf")
	opener := &fakeOpener{docs: map[string]*fakeDoc{"a.pdf": sectionedDoc("a.pdf", 2)}}
	cache := newMapCache()

	a := newTestAggregator(opener.Open, types.ExtractionConfig{})
	a.Cache = cache
	col := types.CollectionConfig{InputDir: dir}

	first, summary, err := a.Process(context.Background(), col, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Zero(t, summary.Cached)
	assert.Equal(t, 1, cache.puts, "failed documents are not cached")

	opener.opened = nil
	var buf bytes.Buffer
	second, summary, err := a.Process(context.Background(), col, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cached)
	assert.Equal(t, []string{"broken.pdf"}, opener.opened)
	assert.Contains(t, buf.String(), "cached:    a.pdf")
	assert.Equal(t, first, second)
}

func TestDocumentKey_ChangesWithBounds(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf")
	path := filepath.Join(dir, "a.pdf")

	k1, err := documentKey(path, types.ExtractionConfig{PageWindow: 3, MaxWords: 200})
	require.NoError(t, err)
	k2, err := documentKey(path, types.ExtractionConfig{PageWindow: 3, MaxWords: 100})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))
	k3, err := documentKey(path, types.ExtractionConfig{PageWindow: 3, MaxWords: 200})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestMerge(t *testing.T) {
	results := []DocumentResult{
		{
			Document: "a.pdf",
			Sections: []types.DocumentSection{
				{Document: "a.pdf", SectionTitle: "A1", ImportanceRank: 1},
				{Document: "a.pdf", SectionTitle: "A2", ImportanceRank: 2},
				{Document: "a.pdf", SectionTitle: "A3", ImportanceRank: 3},
			},
			Excerpts: []types.SubsectionAnalysis{{Document: "a.pdf", PageNumber: 1}, {Document: "a.pdf", PageNumber: 2}},
		},
		{Document: "failed.pdf", Errors: []error{errors.New("boom")}},
		{
			Document: "b.pdf",
			Sections: []types.DocumentSection{
				{Document: "b.pdf", SectionTitle: "B1", ImportanceRank: 1},
				{Document: "b.pdf", SectionTitle: "B2", ImportanceRank: 2},
			},
			Excerpts: []types.SubsectionAnalysis{{Document: "b.pdf", PageNumber: 1}},
		},
	}

	sections, excerpts := Merge(results, 4)

	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = s.SectionTitle
	}
	assert.Equal(t, []string{"A1", "B1", "A2", "B2"}, titles)
	assert.Equal(t, []types.SubsectionAnalysis{
		{Document: "a.pdf", PageNumber: 1},
		{Document: "a.pdf", PageNumber: 2},
		{Document: "b.pdf", PageNumber: 1},
	}, excerpts)
}

func TestMerge_Empty(t *testing.T) {
	sections, excerpts := Merge(nil, 5)
	assert.NotNil(t, sections)
	assert.NotNil(t, excerpts)
	assert.Empty(t, sections)
	assert.Empty(t, excerpts)
}

func TestTruncate(t *testing.T) {
	s := []int{1, 2, 3}
	assert.Equal(t, []int{1, 2}, Truncate(s, 2))
	assert.Equal(t, []int{1, 2, 3}, Truncate(s, 3))
	assert.Equal(t, []int{1, 2, 3}, Truncate(s, 10))
	assert.Empty(t, Truncate(s, 0))
	assert.Empty(t, Truncate(s, -1))
}

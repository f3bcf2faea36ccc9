// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the persona-digest pipeline:
// the per-document records produced by extraction, the aggregated collection
// report written to disk, the outline tree read from PDFs, and configuration.
package types

// FallbackSectionTitle is the title of the synthetic section emitted for a
// document that has no usable outline.
const FallbackSectionTitle = "Document Content"

// DocumentSection is one ranked outline entry of a document.
type DocumentSection struct {
	// Document is the source PDF filename.
	Document string `json:"document" yaml:"document" db:"document"`

	// SectionTitle is the trimmed outline title.
	SectionTitle string `json:"section_title" yaml:"section_title" db:"section_title"`

	// ImportanceRank is the 1-based position of the entry in its document's
	// outline traversal order.
	ImportanceRank int `json:"importance_rank" yaml:"importance_rank" db:"importance_rank"`

	// PageNumber is the 1-based page the entry points to.
	PageNumber int `json:"page_number" yaml:"page_number" db:"page_number"`
}

// FallbackSection returns the synthetic whole-document section for document.
func FallbackSection(document string) DocumentSection {
	return DocumentSection{
		Document:       document,
		SectionTitle:   FallbackSectionTitle,
		ImportanceRank: 1,
		PageNumber:     1,
	}
}

// SubsectionAnalysis is a bounded text excerpt of one page.
type SubsectionAnalysis struct {
	// Document is the source PDF filename.
	Document string `json:"document" yaml:"document"`

	// RefinedText is the page text truncated to a bounded word count and
	// joined with single spaces.
	RefinedText string `json:"refined_text" yaml:"refined_text"`

	// PageNumber is the 1-based page the excerpt was taken from.
	PageNumber int `json:"page_number" yaml:"page_number"`
}

// ReportMetadata describes the collection a report was built from.
type ReportMetadata struct {
	// CollectionID identifies a configured collection. Zero in
	// single-collection mode, where it is omitted from output.
	CollectionID int `json:"collection_id,omitempty" yaml:"collection_id,omitempty"`

	// CollectionName is the human-readable collection name.
	CollectionName string `json:"collection_name,omitempty" yaml:"collection_name,omitempty"`

	Persona     string `json:"persona" yaml:"persona"`
	JobToBeDone string `json:"job_to_be_done" yaml:"job_to_be_done"`

	// InputDocuments lists every discovered PDF filename in discovery order.
	InputDocuments []string `json:"input_documents" yaml:"input_documents"`

	// ProcessingTimestamp is an ISO-8601 timestamp with a zone offset.
	ProcessingTimestamp string `json:"processing_timestamp" yaml:"processing_timestamp"`
}

// CollectionReport is the aggregated, bounded output for one collection.
// Field order is the serialized key order.
type CollectionReport struct {
	Metadata           ReportMetadata       `json:"metadata" yaml:"metadata"`
	ExtractedSections  []DocumentSection    `json:"extracted_sections" yaml:"extracted_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis" yaml:"subsection_analysis"`
}

// DocumentExtraction is the complete extraction output of one document.
type DocumentExtraction struct {
	Sections []DocumentSection    `json:"sections" yaml:"sections"`
	Excerpts []SubsectionAnalysis `json:"excerpts" yaml:"excerpts"`
}

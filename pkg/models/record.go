package models

// Record is one row of the input table as seen by the pipeline.
type Record struct {
	// Row is the zero-based data row index (header excluded).
	Row int
	// Identifier is nil when the id column is absent or the cell is empty.
	Identifier *string
	Text       string
	Summary    string
}

// SummarySource says where a summary came from.
type SummarySource string

const (
	SourceCache       SummarySource = "cache"
	SourcePlaceholder SummarySource = "placeholder"
	SourceGenerated   SummarySource = "generated"
	SourceError       SummarySource = "error"
)

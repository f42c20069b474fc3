package entity

// RunMeta tracks one processing run: a batch of uploaded PDFs and the
// dataset built from them.
type RunMeta struct {
	ID        string
	Status    RunStatus
	Current   int // index of the document being processed, -1 when none
	Total     int
	Processed int
	Err       string
	CreatedAt int64
	StartedAt int64
	EndedAt   int64
}

// DocumentMeta is the per-document status surfaced to the caller.
type DocumentMeta struct {
	ID       int64
	Index    int
	Filename string
	Name     string // file name without extension, written in the Document column
	Size     int
	Status   DocumentStatus
	Err      string
	Tables   int
	Skipped  int
	Records  int
	Warnings []Warning
	Coverage Coverage
}

// Upload is one file received for processing.
type Upload struct {
	Filename string
	Data     []byte
}

package entity

type RunStatus string

const (
	RunStatusIdle         RunStatus = "IDLE"
	RunStatusProcessing   RunStatus = "PROCESSING"
	RunStatusAccumulating RunStatus = "ACCUMULATING"
	RunStatusDone         RunStatus = "DONE"
	RunStatusFailed       RunStatus = "FAILED"
)

// Finished reports whether the run reached a terminal state.
func (s RunStatus) Finished() bool {
	return s == RunStatusDone || s == RunStatusFailed
}

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "PENDING"
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusDone       DocumentStatus = "DONE"
	DocumentStatusFailed     DocumentStatus = "FAILED"
)

// UnclassifiedPolicy decides what happens to a table that matches no
// category.
type UnclassifiedPolicy string

const (
	UnclassifiedSkip  UnclassifiedPolicy = "skip"
	UnclassifiedAbort UnclassifiedPolicy = "abort"
)

// ParseUnclassifiedPolicy defaults to UnclassifiedSkip for an empty value.
func ParseUnclassifiedPolicy(s string) (UnclassifiedPolicy, bool) {
	switch UnclassifiedPolicy(s) {
	case "", UnclassifiedSkip:
		return UnclassifiedSkip, true
	case UnclassifiedAbort:
		return UnclassifiedAbort, true
	default:
		return "", false
	}
}

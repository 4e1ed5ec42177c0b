package types

// Field response statuses. Comparison is case-insensitive everywhere; legacy
// rows carry "COMPLETE" and mixed-case variants.
const (
	ResponseStatusEmpty      = "empty"
	ResponseStatusInProgress = "in_progress"
	ResponseStatusComplete   = "complete"
	ResponseStatusInvalid    = "invalid"
)

// FieldResponseView is the type-agnostic projection of one response row that
// the progress calculator consumes. A field that was never answered has no
// row and therefore no view.
type FieldResponseView struct {
	FieldKey string `json:"field_key"`
	Status   string `json:"status"`
}

package constants

// ValidationStatus is the outcome of the validation pass over an extraction record.
type ValidationStatus string

// Stable values (store these exact strings in DB).
const (
	ValidationValid   ValidationStatus = "valid"
	ValidationPartial ValidationStatus = "partial"
	ValidationInvalid ValidationStatus = "invalid"
)

// BatchStatus is the canonical status for rows in batch_runs.
type BatchStatus string

const (
	BatchStatusRunning BatchStatus = "RUNNING"
	BatchStatusDone    BatchStatus = "DONE"
	BatchStatusPartial BatchStatus = "PARTIAL" // some items failed
	BatchStatusFailed  BatchStatus = "FAILED"  // every item failed
)

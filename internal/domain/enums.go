package domain

type ImportStatus string

const (
	ImportPending   ImportStatus = "pending"
	ImportRunning   ImportStatus = "running"
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// Terminal reports whether no further work happens for a session in this status.
func (s ImportStatus) Terminal() bool {
	return s == ImportCompleted || s == ImportFailed
}

type ResourceKind string

const (
	ResourceLabor     ResourceKind = "labor"
	ResourceMaterial  ResourceKind = "material"
	ResourceEquipment ResourceKind = "equipment"
)

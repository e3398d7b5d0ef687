package repository

// EventType constants identify the kind of lead audit event.
const (
	EventTypeCreated       = "created"
	EventTypeStatusChanged = "status_changed"
	EventTypeLocked        = "locked"
	EventTypePurchased     = "purchased"
	EventTypeLockReleased  = "lock_released"
)

// Lock release reasons recorded in event metadata.
const (
	ReleaseReasonHolder  = "released_by_holder"
	ReleaseReasonExpired = "expired"
)

package engine

import "time"

// Stats is a point-in-time diagnostic snapshot of a control connection.
// Recomputed on demand, never persisted.
type Stats struct {
	// ConnectionID identifies the current child process generation; it
	// changes on every respawn.
	ConnectionID string `json:"connection_id,omitempty"`

	// Alive reports whether a child process is currently running.
	Alive bool `json:"alive"`

	// InFlight is the number of commands submitted but not completed.
	InFlight int `json:"in_flight"`

	// QueueDepth and QueueCapacity describe the notification queue.
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`

	// NotificationsSeen counts notifications classified since the
	// client was created; NotificationsDropped counts those discarded
	// because the queue was full.
	NotificationsSeen    uint64 `json:"notifications_seen"`
	NotificationsDropped uint64 `json:"notifications_dropped"`

	// CommandsRun counts completed Execute calls; CommandsFailed the
	// subset that returned an error or an error-status result.
	CommandsRun    uint64 `json:"commands_run"`
	CommandsFailed uint64 `json:"commands_failed"`

	// Timeouts counts commands torn down by the per-command timeout.
	Timeouts uint64 `json:"timeouts"`

	// Respawns counts child processes started after the first.
	Respawns uint64 `json:"respawns"`

	// LastError is the text of the most recent transport failure, empty
	// when none has occurred.
	LastError string `json:"last_error,omitempty"`

	// LastActivity is the time of the most recent line received from
	// the child.
	LastActivity time.Time `json:"last_activity"`
}

package logging

// Standard attribute keys.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldReplay    = "replay"
	FieldGameID    = "game_id"
	FieldPort      = "port"
	FieldClipID    = "clip_id"
	FieldEventType = "event_type"
	FieldRequestID = "request_id"
)

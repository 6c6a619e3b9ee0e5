package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID    = "user_id"
	FieldUsername  = "username"
	FieldSessionID = "session_id"
	FieldRoomID    = "room_id"

	// Pipeline
	FieldEventID   = "event_id"
	FieldTopic     = "topic"
	FieldPartition = "partition"
	FieldOffset    = "offset"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)

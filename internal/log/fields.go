package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldDocument    = "document"
	FieldAction      = "action"
	FieldMemberID    = "member_id"
	FieldContactKind = "contact_kind"
	FieldTransaction = "transaction_id"
	FieldAmount      = "amount"
)

// Components defines standard component names
const (
	ComponentApp = "app"
)

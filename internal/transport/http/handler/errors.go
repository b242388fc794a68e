package handler

const (
	errInternalServer     = "Internal server error"
	errValidation         = "Validation failed"
	errUnauthorized       = "Unauthorized"
	errRecipientNotFound  = "Recipient not found"
	errDuplicateRecipient = "Recipient with this wallet already exists"
	errScheduleNotFound   = "Schedule not found"
	errAmbiguousRecipient = "Recipient name is ambiguous"
	errRecipientMissing   = "No recipient address or name given"
)

package schema

// ErrorCode categorizes schema failures.
type ErrorCode string

const (
	// SchemaIOError: a schema document could not be read or parsed.
	SchemaIOError ErrorCode = "SchemaIOError"
	// SchemaValidationError: a referential or uniqueness rule is violated.
	SchemaValidationError ErrorCode = "SchemaValidationError"
)

// SchemaError is a structured error naming the offending entity and, for
// reference failures, the missing or conflicting reference.
type SchemaError struct {
	Code      ErrorCode
	Message   string
	Location  string // document path, when known
	Entity    string // e.g. "endpoint auth.whoami"
	Reference string // e.g. "admin"
	Cause     error
}

func (e *SchemaError) Error() string { return e.Message }
func (e *SchemaError) Unwrap() error { return e.Cause }

func ioError(location, msg string, cause error) *SchemaError {
	return &SchemaError{Code: SchemaIOError, Message: msg, Location: location, Cause: cause}
}

func validationError(entity, reference, msg string) *SchemaError {
	return &SchemaError{Code: SchemaValidationError, Message: msg, Entity: entity, Reference: reference}
}

package domain

// ResultCode classifies a failed operation independently of its user-facing
// message, so transports can map outcomes without parsing text.
type ResultCode string

// Result codes.
const (
	CodeOK          ResultCode = "ok"
	CodeInvalid     ResultCode = "invalid"
	CodeNotFound    ResultCode = "not_found"
	CodeForbidden   ResultCode = "forbidden"
	CodeUnavailable ResultCode = "unavailable"
)

// OperationResult is the uniform success/failure envelope returned by every
// mutating or diagnostic Content Store operation. Message is safe to surface
// to end users; Errors carries machine-oriented detail.
type OperationResult struct {
	Success bool           `json:"success"`
	Code    ResultCode     `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
}

// SuccessResult builds a successful OperationResult.
func SuccessResult(message string, data map[string]any) OperationResult {
	return OperationResult{Success: true, Code: CodeOK, Message: message, Data: data}
}

// ErrorResult builds a failed OperationResult with optional detail strings.
func ErrorResult(code ResultCode, message string, errs ...string) OperationResult {
	return OperationResult{Success: false, Code: code, Message: message, Errors: errs}
}

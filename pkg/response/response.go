package response

// ErrorBody is the error payload returned by every endpoint. Clients read
// the Detail field for the human-readable message.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// Error wraps a message in the standard error payload
func Error(detail string) ErrorBody {
	return ErrorBody{Detail: detail}
}

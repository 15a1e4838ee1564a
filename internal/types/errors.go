package types

// API error codes. The numeric suffix is the HTTP status sent with them.
const (
	CodeInvalidArgument = "IO_400"
	CodeDriverFailure   = "IO_500"
	CodeBusUnreachable  = "IO_502"
	CodeSpuriousRead    = "IO_503"

	CodeBoardInvalid  = "BOARD_400"
	CodeBoardNotFound = "BOARD_404"
	CodeBoardConflict = "BOARD_409"

	CodeAuthInvalid      = "AUTH_400"
	CodeAuthUnauthorized = "AUTH_401"
	CodeAuthForbidden    = "AUTH_403"
	CodeAuthFailure      = "AUTH_500"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// OperationDetails locates a failed register operation on the bus.
type OperationDetails struct {
	Operation string `json:"operation"`
	Stack     int    `json:"stack"`
	Address   string `json:"address"`
	Channel   int    `json:"channel,omitempty"`
	Reason    string `json:"reason"`
}

// NewErrorResponse builds the error payload every handler returns.
// details is a string, an OperationDetails or nil.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

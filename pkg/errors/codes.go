package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeMessaging          ErrorCode = "COMMON_017"
)

// Aliases used by call sites that predate the prefixed names.
const (
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
)

// Molecular Graph Error Codes
const (
	ErrCodeGraphDanglingBond     ErrorCode = "GRAPH_001"
	ErrCodeGraphSelfLoop         ErrorCode = "GRAPH_002"
	ErrCodeGraphInvalidBondOrder ErrorCode = "GRAPH_003"
	ErrCodeGraphSnapshotCorrupt  ErrorCode = "GRAPH_004"
)

// Reaction Error Codes
const (
	ErrCodeReagentUnknown ErrorCode = "RXN_001"
)

// Recognition Service Error Codes
const (
	ErrCodeRecognitionFailed     ErrorCode = "REC_001"
	ErrCodeRecognitionIncomplete ErrorCode = "REC_002"
	ErrCodeRecognitionHTTP       ErrorCode = "REC_003"
)

// Graph Storage Error Codes
const (
	ErrCodeGraphNotFound  ErrorCode = "STORE_001"
	ErrCodeStorageFailure ErrorCode = "STORE_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessaging:          http.StatusInternalServerError,

	ErrCodeGraphDanglingBond:     http.StatusUnprocessableEntity,
	ErrCodeGraphSelfLoop:         http.StatusUnprocessableEntity,
	ErrCodeGraphInvalidBondOrder: http.StatusUnprocessableEntity,
	ErrCodeGraphSnapshotCorrupt:  http.StatusUnprocessableEntity,

	ErrCodeReagentUnknown: http.StatusBadRequest,

	ErrCodeRecognitionFailed:     http.StatusBadGateway,
	ErrCodeRecognitionIncomplete: http.StatusBadGateway,
	ErrCodeRecognitionHTTP:       http.StatusBadGateway,

	ErrCodeGraphNotFound:  http.StatusNotFound,
	ErrCodeStorageFailure: http.StatusInternalServerError,
}

// ErrorCodeMessage holds the default user-facing message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:              "internal server error",
	ErrCodeBadRequest:            "bad request",
	ErrCodeNotFound:              "resource not found",
	ErrCodeValidation:            "validation failed",
	ErrCodeGraphDanglingBond:     "bond references an atom outside the graph",
	ErrCodeGraphSelfLoop:         "bond source and target are the same atom",
	ErrCodeGraphInvalidBondOrder: "bond order must be at least 1",
	ErrCodeGraphSnapshotCorrupt:  "graph snapshot is corrupt",
	ErrCodeReagentUnknown:        "reagent is not in the catalog",
	ErrCodeRecognitionFailed:     "server failed to process image/reaction",
	ErrCodeRecognitionIncomplete: "server returned incomplete model data",
	ErrCodeRecognitionHTTP:       "recognition server error",
	ErrCodeGraphNotFound:         "graph not found",
	ErrCodeStorageFailure:        "graph storage failure",
}

// HTTPStatus returns the HTTP status for code, or 500 when the code is not
// mapped.
func HTTPStatus(code ErrorCode) int {
	if s, ok := ErrorCodeHTTPStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Module returns the code prefix before the underscore ("GRAPH", "REC", ...).
func (c ErrorCode) Module() string {
	s := string(c)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}

// IsClientError reports whether code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	s := HTTPStatus(code)
	return s >= 400 && s < 500
}

// IsServerError reports whether code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	return HTTPStatus(code) >= 500
}

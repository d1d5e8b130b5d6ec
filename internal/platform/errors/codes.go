package errors

import "net/http"

// ErrorCode classifies an error for clients and logs, the numeric values go over the wire
type ErrorCode uint16

// Codes are append only
const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable     // upstream or network failure, worth retrying later
	ErrorCodeTooManyRequests // upstream rate limit
	ErrorCodeConflict        // duplicate mutation or state clash
	ErrorCodeUnauthorized
	ErrorCodeForbidden // not the owner
	ErrorCodeInvalidArgument
	ErrorCodeValidation // request body failed validation
	ErrorCodeJSON       // request body is not the expected JSON
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB
	ErrorCodeMalformedRecord // upstream record missing required fields
)

type codeInfo struct {
	name   string
	status int
}

var codeTable = map[ErrorCode]codeInfo{
	ErrorCodeUnknown:         {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:           {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:     {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeTooManyRequests: {"too_many_requests", http.StatusTooManyRequests},
	ErrorCodeConflict:        {"conflict", http.StatusConflict},
	ErrorCodeUnauthorized:    {"unauthorized", http.StatusUnauthorized},
	ErrorCodeForbidden:       {"forbidden", http.StatusForbidden},
	ErrorCodeInvalidArgument: {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:      {"validation", http.StatusBadRequest},
	ErrorCodeJSON:            {"json", http.StatusBadRequest},
	ErrorCodeNotFound:        {"not_found", http.StatusNotFound},
	ErrorCodeDuplicateKey:    {"duplicate_key", http.StatusConflict},
	ErrorCodeDB:              {"db", http.StatusInternalServerError},
	ErrorCodeMalformedRecord: {"malformed_record", http.StatusUnprocessableEntity},
}

func (c ErrorCode) info() codeInfo {
	if i, ok := codeTable[c]; ok {
		return i
	}
	return codeTable[ErrorCodeUnknown]
}

// String names the code for logs
func (c ErrorCode) String() string { return c.info().name }

// HTTPStatusCode maps a code to an HTTP status, unknown codes are 500
func HTTPStatusCode(c ErrorCode) int { return c.info().status }

// HTTPStatus maps any error to a status
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// Transient reports whether err is an upstream hiccup the session survives with a notice
func Transient(err error) bool {
	switch CodeOf(err) {
	case ErrorCodeUnavailable, ErrorCodeTooManyRequests:
		return err != nil
	}
	return false
}

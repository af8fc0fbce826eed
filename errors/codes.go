package errors

// ErrorCode is the machine-readable code returned in error responses
type ErrorCode int32

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL          ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT  ErrorCode = 1001
	ErrorCode_NOT_FOUND         ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS    ErrorCode = 1003
	ErrorCode_CONFLICT          ErrorCode = 1004
	ErrorCode_INVALID_PAYLOAD   ErrorCode = 1005
	ErrorCode_FORBIDDEN         ErrorCode = 1006
	ErrorCode_PERMISSION_DENIED ErrorCode = 1007

	// Scheduling requests
	ErrorCode_REQUEST_NOT_FOUND      ErrorCode = 2000
	ErrorCode_REQUEST_TERMINAL       ErrorCode = 2001
	ErrorCode_REQUEST_INVALID_STATE  ErrorCode = 2002
	ErrorCode_REQUEST_THREAD_CLAIMED ErrorCode = 2003

	// Drafts
	ErrorCode_DRAFT_NOT_FOUND     ErrorCode = 3000
	ErrorCode_DRAFT_INVALID_STATE ErrorCode = 3001
	ErrorCode_DRAFT_EXPIRED       ErrorCode = 3002
	ErrorCode_DRAFT_RETRY_LIMIT   ErrorCode = 3003

	// Work items
	ErrorCode_WORK_ITEM_NOT_FOUND ErrorCode = 4000
	ErrorCode_WORK_ITEM_RESOLVED  ErrorCode = 4001

	// Jobs
	ErrorCode_JOB_NOT_FOUND       ErrorCode = 5000
	ErrorCode_JOB_ALREADY_RUNNING ErrorCode = 5001

	// Integrations
	ErrorCode_INTEGRATION_STORAGE_FAILED      ErrorCode = 6000
	ErrorCode_INTEGRATION_CACHE_FAILED        ErrorCode = 6001
	ErrorCode_INTEGRATION_EXTERNAL_API_FAILED ErrorCode = 6002

	// Database
	ErrorCode_DB_CONNECTION_FAILED ErrorCode = 7000
)

var codeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                         "HTTP_OK",
	ErrorCode_INTERNAL:                        "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:                "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                       "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:                  "ALREADY_EXISTS",
	ErrorCode_CONFLICT:                        "CONFLICT",
	ErrorCode_INVALID_PAYLOAD:                 "INVALID_PAYLOAD",
	ErrorCode_FORBIDDEN:                       "FORBIDDEN",
	ErrorCode_PERMISSION_DENIED:               "PERMISSION_DENIED",
	ErrorCode_REQUEST_NOT_FOUND:               "REQUEST_NOT_FOUND",
	ErrorCode_REQUEST_TERMINAL:                "REQUEST_TERMINAL",
	ErrorCode_REQUEST_INVALID_STATE:           "REQUEST_INVALID_STATE",
	ErrorCode_REQUEST_THREAD_CLAIMED:          "REQUEST_THREAD_CLAIMED",
	ErrorCode_DRAFT_NOT_FOUND:                 "DRAFT_NOT_FOUND",
	ErrorCode_DRAFT_INVALID_STATE:             "DRAFT_INVALID_STATE",
	ErrorCode_DRAFT_EXPIRED:                   "DRAFT_EXPIRED",
	ErrorCode_DRAFT_RETRY_LIMIT:               "DRAFT_RETRY_LIMIT",
	ErrorCode_WORK_ITEM_NOT_FOUND:             "WORK_ITEM_NOT_FOUND",
	ErrorCode_WORK_ITEM_RESOLVED:              "WORK_ITEM_RESOLVED",
	ErrorCode_JOB_NOT_FOUND:                   "JOB_NOT_FOUND",
	ErrorCode_JOB_ALREADY_RUNNING:             "JOB_ALREADY_RUNNING",
	ErrorCode_INTEGRATION_STORAGE_FAILED:      "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_CACHE_FAILED:        "INTEGRATION_CACHE_FAILED",
	ErrorCode_INTEGRATION_EXTERNAL_API_FAILED: "INTEGRATION_EXTERNAL_API_FAILED",
	ErrorCode_DB_CONNECTION_FAILED:            "DB_CONNECTION_FAILED",
}

// String returns the code name
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

package errors

import "net/http"

// ErrorCode is a typed string identifying a failure category.  Codes are
// stable API surface: clients and dashboards key on them, so existing codes
// are never renumbered.  Format: <MODULE>_<NNN>.
type ErrorCode string

// Common codes shared across all modules.
const (
	// CodeOK is the zero failure code, returned by GetCode for nil errors.
	CodeOK ErrorCode = "COMMON_000"

	ErrCodeUnknown         ErrorCode = "COMMON_001"
	ErrCodeInternal        ErrorCode = "COMMON_002"
	ErrCodeBadRequest      ErrorCode = "COMMON_003"
	ErrCodeNotFound        ErrorCode = "COMMON_004"
	ErrCodeConflict        ErrorCode = "COMMON_005"
	ErrCodeUnauthorized    ErrorCode = "COMMON_006"
	ErrCodeForbidden       ErrorCode = "COMMON_007"
	ErrCodeTimeout         ErrorCode = "COMMON_008"
	ErrCodeTooManyRequests ErrorCode = "COMMON_009"
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeDatabaseError   ErrorCode = "COMMON_011"
	ErrCodeCacheError      ErrorCode = "COMMON_012"
	ErrCodeMessagingError  ErrorCode = "COMMON_013"
	ErrCodeStorageError    ErrorCode = "COMMON_014"
	ErrCodeConfigError     ErrorCode = "COMMON_015"
	ErrCodeUnavailable     ErrorCode = "COMMON_016"
)

// Price resolution codes.
const (
	ErrCodePriceRecordNotFound ErrorCode = "PRICE_001"
	ErrCodeLookupFailed        ErrorCode = "PRICE_002"
	ErrCodeBatchTooLarge       ErrorCode = "PRICE_003"
	ErrCodeInvalidPriceRecord  ErrorCode = "PRICE_004"
)

// Job pipeline codes.
const (
	ErrCodeJobNotFound        ErrorCode = "JOB_001"
	ErrCodeJobNotReady        ErrorCode = "JOB_002"
	ErrCodeJobInvalidState    ErrorCode = "JOB_003"
	ErrCodeJobAlreadyRunning  ErrorCode = "JOB_004"
	ErrCodeGenerationFailed   ErrorCode = "JOB_005"
	ErrCodeJobResultCorrupted ErrorCode = "JOB_006"
)

// BoQ analysis codes.
const (
	ErrCodeBoqDocumentInvalid ErrorCode = "BOQ_001"
	ErrCodeBoqExtractFailed   ErrorCode = "BOQ_002"
	ErrCodeBoqEmptyDocument   ErrorCode = "BOQ_003"
)

// Payment webhook codes.
const (
	ErrCodeSignatureMismatch ErrorCode = "PAY_001"
	ErrCodePaymentNotFound   ErrorCode = "PAY_002"
	ErrCodePaymentMalformed  ErrorCode = "PAY_003"
)

// Marketplace source codes.
const (
	ErrCodeSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeSourceBadResponse ErrorCode = "SRC_002"
	ErrCodeNoUsableListings  ErrorCode = "SRC_003"
)

// Trust scoring codes.
const (
	ErrCodeWorkerNotFound     ErrorCode = "TRUST_001"
	ErrCodeTrustInvalidSignal ErrorCode = "TRUST_002"
)

// ErrorCodeHTTPStatus maps each code to the HTTP status the API layer
// responds with.  Codes absent from the map fall back to 500.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	CodeOK:                 http.StatusOK,
	ErrCodeUnknown:         http.StatusInternalServerError,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeDatabaseError:   http.StatusInternalServerError,
	ErrCodeCacheError:      http.StatusServiceUnavailable,
	ErrCodeMessagingError:  http.StatusInternalServerError,
	ErrCodeStorageError:    http.StatusInternalServerError,
	ErrCodeConfigError:     http.StatusInternalServerError,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,

	ErrCodePriceRecordNotFound: http.StatusNotFound,
	ErrCodeLookupFailed:        http.StatusBadGateway,
	ErrCodeBatchTooLarge:       http.StatusBadRequest,
	ErrCodeInvalidPriceRecord:  http.StatusUnprocessableEntity,

	ErrCodeJobNotFound:        http.StatusNotFound,
	ErrCodeJobNotReady:        http.StatusConflict,
	ErrCodeJobInvalidState:    http.StatusConflict,
	ErrCodeJobAlreadyRunning:  http.StatusConflict,
	ErrCodeGenerationFailed:   http.StatusBadGateway,
	ErrCodeJobResultCorrupted: http.StatusInternalServerError,

	ErrCodeBoqDocumentInvalid: http.StatusUnprocessableEntity,
	ErrCodeBoqExtractFailed:   http.StatusBadGateway,
	ErrCodeBoqEmptyDocument:   http.StatusUnprocessableEntity,

	ErrCodeSignatureMismatch: http.StatusUnauthorized,
	ErrCodePaymentNotFound:   http.StatusNotFound,
	ErrCodePaymentMalformed:  http.StatusBadRequest,

	ErrCodeSourceUnavailable: http.StatusBadGateway,
	ErrCodeSourceBadResponse: http.StatusBadGateway,
	ErrCodeNoUsableListings:  http.StatusNotFound,

	ErrCodeWorkerNotFound:     http.StatusNotFound,
	ErrCodeTrustInvalidSignal: http.StatusBadRequest,
}

// ErrorCodeMessage holds the default English message per code, used when a
// handler needs a response body for an error that carried no message.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeUnknown:         "unknown error",
	ErrCodeInternal:        "internal server error",
	ErrCodeBadRequest:      "bad request",
	ErrCodeNotFound:        "resource not found",
	ErrCodeConflict:        "resource conflict",
	ErrCodeUnauthorized:    "unauthorized",
	ErrCodeForbidden:       "forbidden",
	ErrCodeTimeout:         "request timed out",
	ErrCodeTooManyRequests: "too many requests",
	ErrCodeValidation:      "validation failed",
	ErrCodeDatabaseError:   "database error",
	ErrCodeCacheError:      "cache unavailable",
	ErrCodeMessagingError:  "event publish failed",
	ErrCodeStorageError:    "object storage error",
	ErrCodeConfigError:     "invalid configuration",
	ErrCodeUnavailable:     "service unavailable",

	ErrCodePriceRecordNotFound: "price record not found",
	ErrCodeLookupFailed:        "price lookup failed",
	ErrCodeBatchTooLarge:       "batch exceeds maximum size",
	ErrCodeInvalidPriceRecord:  "invalid price record",

	ErrCodeJobNotFound:        "job not found",
	ErrCodeJobNotReady:        "job result not ready",
	ErrCodeJobInvalidState:    "invalid job state transition",
	ErrCodeJobAlreadyRunning:  "job already running",
	ErrCodeGenerationFailed:   "generation failed",
	ErrCodeJobResultCorrupted: "job result corrupted",

	ErrCodeBoqDocumentInvalid: "invalid bill of quantities document",
	ErrCodeBoqExtractFailed:   "document extraction failed",
	ErrCodeBoqEmptyDocument:   "document contains no line items",

	ErrCodeSignatureMismatch: "webhook signature mismatch",
	ErrCodePaymentNotFound:   "payment not found",
	ErrCodePaymentMalformed:  "malformed payment notification",

	ErrCodeSourceUnavailable: "marketplace source unavailable",
	ErrCodeSourceBadResponse: "marketplace source returned a bad response",
	ErrCodeNoUsableListings:  "no usable marketplace listings",

	ErrCodeWorkerNotFound:     "worker not found",
	ErrCodeTrustInvalidSignal: "invalid trust signal",
}

// HTTPStatusForCode returns the HTTP status associated with code, defaulting
// to 500 for unmapped codes.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// MessageForCode returns the default message for code, or a generic fallback.
func MessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unexpected error"
}

// IsClientError reports whether the code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	s := HTTPStatusForCode(code)
	return s >= 400 && s < 500
}

// IsServerError reports whether the code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	return HTTPStatusForCode(code) >= 500
}

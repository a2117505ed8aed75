package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet & Ledger (WAL) ----

func ErrInvalidAmount() *AppError {
	return New("WAL_001", "Invalid amount", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("WAL_002", "Insufficient balance", http.StatusPaymentRequired)
}

func ErrUnknownCurrency(code string) *AppError {
	return New("WAL_003", fmt.Sprintf("Unsupported currency: %s", code), http.StatusBadRequest)
}

func ErrInvalidPair() *AppError {
	return New("WAL_004", "Source and destination currency must differ", http.StatusBadRequest)
}

func ErrUnknownRecipient() *AppError {
	return New("WAL_005", "Recipient not found", http.StatusNotFound)
}

func ErrNotFound(entity string) *AppError {
	return New("WAL_006", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrInvalidInstrument(reason string) *AppError {
	return New("WAL_007", fmt.Sprintf("Invalid instrument: %s", reason), http.StatusBadRequest)
}

func ErrCurrencyMismatch() *AppError {
	return New("WAL_008", "Instrument currency does not match operation currency", http.StatusBadRequest)
}

// ---- Challenge / OTP (OTP) ----

func ErrChallengeExpired() *AppError {
	return New("OTP_001", "Verification code expired, request a new one", http.StatusGone)
}

func ErrChallengeMismatch(remaining int) *AppError {
	return New("OTP_002", fmt.Sprintf("Incorrect verification code, %d attempts remaining", remaining), http.StatusUnauthorized)
}

func ErrChallengeAlreadyUsed() *AppError {
	return New("OTP_003", "Verification code already used", http.StatusConflict)
}

func ErrChallengeAttemptsExceeded() *AppError {
	return New("OTP_004", "Too many incorrect attempts, request a new code", http.StatusTooManyRequests)
}

func ErrChallengeNotFound() *AppError {
	return New("OTP_005", "Verification challenge not found", http.StatusNotFound)
}

// ---- Rates & Throttling (RATE) ----

func ErrRateUnavailable() *AppError {
	return New("RATE_001", "Exchange rate unavailable", http.StatusServiceUnavailable)
}

func ErrRateLimitExceeded() *AppError {
	return New("RATE_002", "Too many requests, slow down", http.StatusTooManyRequests)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrAccountExists() *AppError {
	return New("AUTH_002", "Email or username already registered", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountSuspended() *AppError {
	return New("AUTH_004", "Account is suspended", http.StatusForbidden)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_002", "Encryption service failure", http.StatusInternalServerError, err)
}

func ErrServiceUnavailable(err error) *AppError {
	return Wrap("SYS_003", "Service temporarily unavailable", http.StatusServiceUnavailable, err)
}

// Validation returns a WAL_001-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("WAL_001", message, http.StatusBadRequest)
}

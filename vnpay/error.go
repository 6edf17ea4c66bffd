package vnpay

import "errors"

var (
	// Config validation.
	ErrEmptyTmnCode    = errors.New("empty terminal code")
	ErrEmptyHashSecret = errors.New("empty hash secret")

	// Request validation.
	ErrMissingTxnRef          = errors.New("missing transaction reference")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrMissingOrderInfo       = errors.New("missing order info")
	ErrMissingIPAddr          = errors.New("missing client ip")
	ErrMissingReturnURL       = errors.New("missing return url")
	ErrMissingTransactionDate = errors.New("missing transaction date")
	ErrMissingCreateBy        = errors.New("missing create by")
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// Callback verification. The soft Verify path reports a mismatch via
	// VerificationResult instead of returning this.
	ErrInvalidSign = errors.New("invalid sign")

	// Response verification on querydr/refund. Always fatal.
	ErrInvalidResponseChecksum = errors.New("wrong checksum from VNPay response")

	// Transport.
	ErrUnexpectedStatus = errors.New("unexpected http status")
)

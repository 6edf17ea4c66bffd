package vnpay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// ResponseCodeSuccess is the payment result code for a completed
// transaction; every other code is a failure or an intermediate state.
const ResponseCodeSuccess = "00"

type rawPaymentCallbackPayload struct {
	TmnCode string
	// Major VND units: the wire value arrives multiplied by 100
	Amount   decimal.Decimal
	BankCode string
	// Bank-side transaction number, present on successful payments
	BankTranNo string
	CardType   string
	// yyyyMMddHHmmss in GMT+7
	PayDate       string
	OrderInfo     string
	TransactionNo string
	ResponseCode  string
	// Payment status at the gateway, "00" on success
	TransactionStatus string
	TxnRef            string
	SecureHashType    string
	SecureHash        string

	// Every delivered field except the hash pair, exactly as received.
	// The gateway signs whatever it sends, so verification re-signs this
	// set rather than a fixed field list.
	signed url.Values
}

func (payload *rawPaymentCallbackPayload) UnmarshalForm(query string) error {
	values, err := url.ParseQuery(query)
	if err != nil {
		return err
	}
	return payload.UnmarshalValues(values)
}

func (payload *rawPaymentCallbackPayload) UnmarshalValues(values url.Values) error {
	signed := url.Values{}
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		signed.Set(k, vs[0])
	}
	payload.SecureHash = signed.Get("vnp_SecureHash")
	payload.SecureHashType = signed.Get("vnp_SecureHashType")
	signed.Del("vnp_SecureHash")
	signed.Del("vnp_SecureHashType")
	payload.signed = signed

	payload.TmnCode = values.Get("vnp_TmnCode")
	payload.BankCode = values.Get("vnp_BankCode")
	payload.BankTranNo = values.Get("vnp_BankTranNo")
	payload.CardType = values.Get("vnp_CardType")
	payload.PayDate = values.Get("vnp_PayDate")
	payload.OrderInfo = values.Get("vnp_OrderInfo")
	payload.TransactionNo = values.Get("vnp_TransactionNo")
	payload.ResponseCode = values.Get("vnp_ResponseCode")
	payload.TransactionStatus = values.Get("vnp_TransactionStatus")
	payload.TxnRef = values.Get("vnp_TxnRef")

	if amountStr := values.Get("vnp_Amount"); amountStr != "" {
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse amount: %w", err)
		}
		payload.Amount = amount.Div(decimal.NewFromInt(100))
	}
	return nil
}

func (payload *rawPaymentCallbackPayload) VerifySignature(conf *Config) error {
	expect := signer{}.Sign(conf.HashAlgo, conf.HashSecret, encodeSorted(payload.signed))
	if !(signer{}).Equal(expect, payload.SecureHash) {
		return fmt.Errorf("%w, expect %s, got %s", ErrInvalidSign, expect, payload.SecureHash)
	}
	return nil
}

func (payload *rawPaymentCallbackPayload) IsSuccess() bool {
	return payload.ResponseCode == ResponseCodeSuccess
}

// PaymentCallbackRequest is a parsed return-URL or IPN callback. Both
// arrive as query parameters with identical fields and signature rules, so
// one parser covers them.
type PaymentCallbackRequest struct {
	data *rawPaymentCallbackPayload
}

func ParsePaymentCallbackRequest(req *http.Request) (*PaymentCallbackRequest, error) {
	var payload rawPaymentCallbackPayload
	if err := payload.UnmarshalForm(req.URL.RawQuery); err != nil {
		return nil, err
	}
	return &PaymentCallbackRequest{
		data: &payload,
	}, nil
}

// ParsePaymentCallbackValues parses callback fields already extracted from
// their carrier, e.g. by a web framework.
func ParsePaymentCallbackValues(values url.Values) (*PaymentCallbackRequest, error) {
	var payload rawPaymentCallbackPayload
	if err := payload.UnmarshalValues(values); err != nil {
		return nil, err
	}
	return &PaymentCallbackRequest{
		data: &payload,
	}, nil
}

func (req *PaymentCallbackRequest) TmnCode() string {
	return req.data.TmnCode
}

func (req *PaymentCallbackRequest) TxnRef() string {
	return req.data.TxnRef
}

// Amount reports the paid amount in major VND units, the inverse of the
// x100 applied when the payment URL was built.
func (req *PaymentCallbackRequest) Amount() decimal.Decimal {
	return req.data.Amount
}

func (req *PaymentCallbackRequest) BankCode() string {
	return req.data.BankCode
}

func (req *PaymentCallbackRequest) BankTranNo() string {
	return req.data.BankTranNo
}

func (req *PaymentCallbackRequest) CardType() string {
	return req.data.CardType
}

func (req *PaymentCallbackRequest) PayDate() string {
	return req.data.PayDate
}

func (req *PaymentCallbackRequest) OrderInfo() string {
	return req.data.OrderInfo
}

func (req *PaymentCallbackRequest) TransactionNo() string {
	return req.data.TransactionNo
}

func (req *PaymentCallbackRequest) ResponseCode() string {
	return req.data.ResponseCode
}

func (req *PaymentCallbackRequest) TransactionStatus() string {
	return req.data.TransactionStatus
}

func (req *PaymentCallbackRequest) IsSuccess() bool {
	return req.data.IsSuccess()
}

// VerifySignature recomputes the signature over the delivered fields and
// compares it with the supplied one. Callers that prefer a verdict value
// over an error should use Verify instead.
func (req *PaymentCallbackRequest) VerifySignature(conf *Config) error {
	if conf == nil {
		return fmt.Errorf("config is nil")
	}
	if req == nil || req.data == nil {
		return fmt.Errorf("payload is nil")
	}

	return req.data.VerifySignature(conf)
}

// VerificationResult carries the verification verdict next to the original
// callback fields. A failed check is a value, not an error: forged or
// corrupted callbacks are expected traffic, and callers still need the
// fields for logging.
type VerificationResult struct {
	*PaymentCallbackRequest

	IsVerified bool
	IsSuccess  bool
	Message    string
}

// Verify checks the callback signature and classifies the payment result.
// IsVerified=false means the fields must not be trusted; Message then
// reads "Wrong checksum". With a valid signature, Message carries the
// human-readable text for the response code in the configured locale.
func (req *PaymentCallbackRequest) Verify(conf *Config) *VerificationResult {
	result := &VerificationResult{
		PaymentCallbackRequest: req,
		IsSuccess:              req.IsSuccess(),
	}
	if err := req.VerifySignature(conf); err != nil {
		result.Message = "Wrong checksum"
		return result
	}
	result.IsVerified = true
	result.Message = lookupPaymentMessage(req.ResponseCode(), conf.Locale)
	return result
}

// IPNRspCode is the acknowledgment code the merchant returns to the
// gateway after processing an IPN call.
type IPNRspCode = string

const (
	IPNRspCodeSuccess         IPNRspCode = "00"
	IPNRspCodeOrderNotFound   IPNRspCode = "01"
	IPNRspCodeOrderConfirmed  IPNRspCode = "02"
	IPNRspCodeInvalidAmount   IPNRspCode = "04"
	IPNRspCodeInvalidChecksum IPNRspCode = "97"
	IPNRspCodeUnknownError    IPNRspCode = "99"
)

type IPNReply struct {
	RspCode IPNRspCode `json:"RspCode"`
	Message string     `json:"Message"`
}

// GenerateReply maps the verification verdict to the gateway
// acknowledgment. Order-level outcomes (not found, already confirmed,
// amount mismatch) are merchant decisions; build an IPNReply with the
// matching code directly for those.
func (result *VerificationResult) GenerateReply() *IPNReply {
	if !result.IsVerified {
		return &IPNReply{
			RspCode: IPNRspCodeInvalidChecksum,
			Message: "Invalid Checksum",
		}
	}
	return &IPNReply{
		RspCode: IPNRspCodeSuccess,
		Message: "Confirm Success",
	}
}

func (reply *IPNReply) WriteTo(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(reply)
}

package vnpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/decode-ex/vnpay-sdk/internal/strings2"
)

type RefundTransactionType = string

const (
	RefundTransactionTypeFull    RefundTransactionType = "02"
	RefundTransactionTypePartial RefundTransactionType = "03"
)

type RefundRequest struct {
	// Identifies this API call, unique per terminal per day. Generated
	// when empty.
	RequestID string
	// Reference of the payment transaction being refunded.
	TxnRef string
	// Refund amount in major VND units; the gateway receives it
	// multiplied by 100. A full refund must match the original amount.
	Amount decimal.Decimal

	TransactionType RefundTransactionType
	// Gateway transaction number of the original payment. Optional; the
	// gateway can match on TxnRef plus TransactionDate.
	TransactionNo string
	// Creation time of the original payment.
	TransactionDate time.Time
	// Operator recorded as the refund initiator.
	CreateBy string

	OrderInfo string
	IpAddr    string
}

func (req *RefundRequest) Validate() error {
	if req.TxnRef == "" {
		return ErrMissingTxnRef
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !req.Amount.Mul(decimal.NewFromInt(100)).IsInteger() {
		return ErrInvalidAmount
	}
	switch req.TransactionType {
	case RefundTransactionTypeFull, RefundTransactionTypePartial:
	default:
		return ErrInvalidTransactionType
	}
	if req.TransactionDate.IsZero() {
		return ErrMissingTransactionDate
	}
	if req.CreateBy == "" {
		return ErrMissingCreateBy
	}
	if req.OrderInfo == "" {
		return ErrMissingOrderInfo
	}
	if req.IpAddr == "" {
		return ErrMissingIPAddr
	}
	return nil
}

func (req *RefundRequest) toRaw(conf *Config) *rawRefundRequest {
	const Command = "refund"

	requestID := req.RequestID
	if requestID == "" {
		requestID = generateRequestID()
	}
	raw := &rawRefundRequest{
		RequestID:       requestID,
		Version:         conf.Version,
		Command:         Command,
		TmnCode:         conf.TmnCode,
		TransactionType: req.TransactionType,
		TxnRef:          req.TxnRef,
		Amount:          req.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0),
		TransactionNo:   req.TransactionNo,
		TransactionDate: conf.formatTime(req.TransactionDate),
		CreateBy:        req.CreateBy,
		CreateDate:      conf.formatTime(conf.now()),
		IpAddr:          req.IpAddr,
		OrderInfo:       req.OrderInfo,
	}
	raw.SecureHash = signer{}.Sign(conf.HashAlgo, conf.HashSecret, raw.signPayload())
	return raw
}

type rawRefundRequest struct {
	RequestID       string `json:"vnp_RequestId"`
	Version         string `json:"vnp_Version"`
	Command         string `json:"vnp_Command"`
	TmnCode         string `json:"vnp_TmnCode"`
	TransactionType string `json:"vnp_TransactionType"`
	TxnRef          string `json:"vnp_TxnRef"`
	Amount          string `json:"vnp_Amount"`
	TransactionNo   string `json:"vnp_TransactionNo,omitempty"`
	TransactionDate string `json:"vnp_TransactionDate"`
	CreateBy        string `json:"vnp_CreateBy"`
	CreateDate      string `json:"vnp_CreateDate"`
	IpAddr          string `json:"vnp_IpAddr"`
	OrderInfo       string `json:"vnp_OrderInfo"`
	SecureHash      string `json:"vnp_SecureHash"`
}

// signPayload builds the pipe-joined signing input. The field order is the
// wire contract; never reorder. An unset TransactionNo stays as an empty
// segment.
func (raw *rawRefundRequest) signPayload() string {
	return encodePipe(
		raw.RequestID,
		raw.Version,
		raw.Command,
		raw.TmnCode,
		raw.TransactionType,
		raw.TxnRef,
		raw.Amount,
		raw.TransactionNo,
		raw.TransactionDate,
		raw.CreateBy,
		raw.CreateDate,
		raw.IpAddr,
		raw.OrderInfo,
	)
}

func (raw *rawRefundRequest) GenerateSignedRequest(ctx context.Context) (*http.Request, error) {
	body := bytes.NewBuffer(nil)
	if err := json.NewEncoder(body).Encode(raw); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, _TransactionPath.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

type rawRefundResponse struct {
	ResponseID        string
	Command           string
	TmnCode           string
	TxnRef            string
	Amount            string
	OrderInfo         string
	ResponseCode      string
	Message           string
	BankCode          string
	PayDate           string
	TransactionNo     string
	TransactionType   string
	TransactionStatus string
	SecureHash        string
}

func (raw *rawRefundResponse) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var tmp struct {
		ResponseID        string          `json:"vnp_ResponseId"`
		Command           string          `json:"vnp_Command"`
		TmnCode           string          `json:"vnp_TmnCode"`
		TxnRef            string          `json:"vnp_TxnRef"`
		Amount            json.RawMessage `json:"vnp_Amount"`
		OrderInfo         string          `json:"vnp_OrderInfo"`
		ResponseCode      json.RawMessage `json:"vnp_ResponseCode"`
		Message           string          `json:"vnp_Message"`
		BankCode          string          `json:"vnp_BankCode"`
		PayDate           json.RawMessage `json:"vnp_PayDate"`
		TransactionNo     json.RawMessage `json:"vnp_TransactionNo"`
		TransactionType   json.RawMessage `json:"vnp_TransactionType"`
		TransactionStatus json.RawMessage `json:"vnp_TransactionStatus"`
		SecureHash        string          `json:"vnp_SecureHash"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	raw.ResponseID = tmp.ResponseID
	raw.Command = tmp.Command
	raw.TmnCode = tmp.TmnCode
	raw.TxnRef = tmp.TxnRef
	raw.OrderInfo = tmp.OrderInfo
	raw.Message = tmp.Message
	raw.BankCode = tmp.BankCode
	raw.SecureHash = tmp.SecureHash

	var err error
	if raw.Amount, err = jsonScalar(tmp.Amount); err != nil {
		return err
	}
	if raw.ResponseCode, err = jsonScalar(tmp.ResponseCode); err != nil {
		return err
	}
	if raw.PayDate, err = jsonScalar(tmp.PayDate); err != nil {
		return err
	}
	if raw.TransactionNo, err = jsonScalar(tmp.TransactionNo); err != nil {
		return err
	}
	if raw.TransactionType, err = jsonScalar(tmp.TransactionType); err != nil {
		return err
	}
	if raw.TransactionStatus, err = jsonScalar(tmp.TransactionStatus); err != nil {
		return err
	}
	return nil
}

// signPayload joins the thirteen response fields in wire order. Unlike the
// querydr response check, nothing is stripped from the input: the gateway
// hashes refund responses verbatim.
func (raw *rawRefundResponse) signPayload() string {
	return encodePipe(
		raw.ResponseID,
		raw.Command,
		raw.ResponseCode,
		raw.Message,
		raw.TmnCode,
		raw.TxnRef,
		raw.Amount,
		raw.BankCode,
		raw.PayDate,
		raw.TransactionNo,
		raw.TransactionType,
		raw.TransactionStatus,
		raw.OrderInfo,
	)
}

func (raw *rawRefundResponse) inSoftErrorRange() bool {
	code, err := strconv.Atoi(raw.ResponseCode)
	return err == nil && code >= 90 && code <= 99
}

func (raw *rawRefundResponse) verifySignature(conf *Config) error {
	if raw.inSoftErrorRange() {
		return nil
	}
	expect := signer{}.Sign(conf.HashAlgo, conf.HashSecret, raw.signPayload())
	if !(signer{}).Equal(expect, raw.SecureHash) {
		return fmt.Errorf("%w, expect %s, got %s", ErrInvalidResponseChecksum, expect, raw.SecureHash)
	}
	return nil
}

type RefundResponse struct {
	data    *rawRefundResponse
	amount  decimal.Decimal
	message string
}

func newRefundResponse(raw *rawRefundResponse, conf *Config) (*RefundResponse, error) {
	resp := &RefundResponse{
		data:    raw,
		message: lookupRefundMessage(raw.ResponseCode, conf.Locale),
	}
	if raw.Amount != "" {
		amount, err := decimal.NewFromString(raw.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		resp.amount = amount
	}
	return resp, nil
}

func (resp *RefundResponse) ResponseID() string {
	return resp.data.ResponseID
}

func (resp *RefundResponse) ResponseCode() string {
	return resp.data.ResponseCode
}

// IsSuccess reports whether the refund request was accepted.
func (resp *RefundResponse) IsSuccess() bool {
	return resp.data.ResponseCode == ResponseCodeSuccess
}

// Message is the human-readable text for the response code in the
// configured locale. GatewayMessage carries the gateway's own wording.
func (resp *RefundResponse) Message() string {
	return resp.message
}

func (resp *RefundResponse) GatewayMessage() string {
	return resp.data.Message
}

func (resp *RefundResponse) TxnRef() string {
	return resp.data.TxnRef
}

// Amount is reported as received from the gateway, in minor units.
func (resp *RefundResponse) Amount() decimal.Decimal {
	return resp.amount
}

func (resp *RefundResponse) BankCode() string {
	return resp.data.BankCode
}

func (resp *RefundResponse) PayDate() string {
	return resp.data.PayDate
}

func (resp *RefundResponse) TransactionNo() string {
	return resp.data.TransactionNo
}

func (resp *RefundResponse) TransactionType() string {
	return resp.data.TransactionType
}

func (resp *RefundResponse) TransactionStatus() string {
	return resp.data.TransactionStatus
}

// Refund asks the gateway to return money for a settled payment. The
// response trust policy matches QueryDr: codes in [90,99] skip signature
// verification, anything else must carry a valid signature or the call
// fails with ErrInvalidResponseChecksum.
func (cli *Client) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	raw := req.toRaw(cli.conf)
	httpReq, err := raw.GenerateSignedRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate signed request failed: %w", err)
	}

	resp, err := cli.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s, body %s", ErrUnexpectedStatus, resp.Status, strings2.FromBytesNoAlloc(body))
	}

	var rawResp rawRefundResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}
	if err := rawResp.verifySignature(cli.conf); err != nil {
		return nil, err
	}
	return newRefundResponse(&rawResp, cli.conf)
}

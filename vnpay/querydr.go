package vnpay

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/decode-ex/vnpay-sdk/internal/strings2"
)

// generateRequestID produces a 32-char API call identifier, the maximum
// length vnp_RequestId allows.
func generateRequestID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}

// jsonScalar renders a JSON scalar the way the gateway hashes it: strings
// keep their content, numbers keep their literal form, null and absent
// values become empty.
func jsonScalar(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	if s := string(raw); s != "null" {
		return s, nil
	}
	return "", nil
}

type QueryDrRequest struct {
	// Identifies this API call, unique per terminal per day. Generated
	// when empty.
	RequestID string
	// Reference of the payment transaction being looked up.
	TxnRef string
	// Creation time of that payment (vnp_TransactionDate).
	TransactionDate time.Time

	OrderInfo string
	IpAddr    string
}

func (req *QueryDrRequest) Validate() error {
	if req.TxnRef == "" {
		return ErrMissingTxnRef
	}
	if req.TransactionDate.IsZero() {
		return ErrMissingTransactionDate
	}
	if req.OrderInfo == "" {
		return ErrMissingOrderInfo
	}
	if req.IpAddr == "" {
		return ErrMissingIPAddr
	}
	return nil
}

func (req *QueryDrRequest) toRaw(conf *Config) *rawQueryDrRequest {
	const Command = "querydr"

	requestID := req.RequestID
	if requestID == "" {
		requestID = generateRequestID()
	}
	raw := &rawQueryDrRequest{
		RequestID:       requestID,
		Version:         conf.Version,
		Command:         Command,
		TmnCode:         conf.TmnCode,
		TxnRef:          req.TxnRef,
		TransactionDate: conf.formatTime(req.TransactionDate),
		CreateDate:      conf.formatTime(conf.now()),
		IpAddr:          req.IpAddr,
		OrderInfo:       req.OrderInfo,
	}
	raw.SecureHash = signer{}.Sign(conf.HashAlgo, conf.HashSecret, raw.signPayload())
	return raw
}

type rawQueryDrRequest struct {
	RequestID       string `json:"vnp_RequestId"`
	Version         string `json:"vnp_Version"`
	Command         string `json:"vnp_Command"`
	TmnCode         string `json:"vnp_TmnCode"`
	TxnRef          string `json:"vnp_TxnRef"`
	TransactionDate string `json:"vnp_TransactionDate"`
	CreateDate      string `json:"vnp_CreateDate"`
	IpAddr          string `json:"vnp_IpAddr"`
	OrderInfo       string `json:"vnp_OrderInfo"`
	SecureHash      string `json:"vnp_SecureHash"`
}

// signPayload builds the pipe-joined signing input. The field order is the
// wire contract; never reorder.
func (raw *rawQueryDrRequest) signPayload() string {
	return encodePipe(
		raw.RequestID,
		raw.Version,
		raw.Command,
		raw.TmnCode,
		raw.TxnRef,
		raw.TransactionDate,
		raw.CreateDate,
		raw.IpAddr,
		raw.OrderInfo,
	)
}

func (raw *rawQueryDrRequest) GenerateSignedRequest(ctx context.Context) (*http.Request, error) {
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

type rawQueryDrResponse struct {
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
	PromotionCode     string
	PromotionAmount   string
	SecureHash        string
}

func (raw *rawQueryDrResponse) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	// Amounts, counters and codes may arrive as JSON numbers or strings
	// depending on the response variant; the signing input needs their
	// literal form either way.
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
		PromotionCode     string          `json:"vnp_PromotionCode"`
		PromotionAmount   json.RawMessage `json:"vnp_PromotionAmount"`
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
	raw.PromotionCode = tmp.PromotionCode
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
	if raw.PromotionAmount, err = jsonScalar(tmp.PromotionAmount); err != nil {
		return err
	}
	return nil
}

// signPayload joins the fifteen response fields in wire order, then drops
// every occurrence of the literal text "undefined": the gateway hashes
// naive string concatenation on its side, and fields legitimately absent
// from some response variants leak that literal into the signing input.
func (raw *rawQueryDrResponse) signPayload() string {
	data := encodePipe(
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
		raw.PromotionCode,
		raw.PromotionAmount,
	)
	return strings.ReplaceAll(data, "undefined", "")
}

// inSoftErrorRange reports whether the response code is in the gateway's
// system-error band [90,99]. Those responses are abbreviated and carry no
// signature.
func (raw *rawQueryDrResponse) inSoftErrorRange() bool {
	code, err := strconv.Atoi(raw.ResponseCode)
	return err == nil && code >= 90 && code <= 99
}

func (raw *rawQueryDrResponse) verifySignature(conf *Config) error {
	if raw.inSoftErrorRange() {
		return nil
	}
	expect := signer{}.Sign(conf.HashAlgo, conf.HashSecret, raw.signPayload())
	if !(signer{}).Equal(expect, raw.SecureHash) {
		return fmt.Errorf("%w, expect %s, got %s", ErrInvalidResponseChecksum, expect, raw.SecureHash)
	}
	return nil
}

type QueryDrResponse struct {
	data    *rawQueryDrResponse
	amount  decimal.Decimal
	message string
}

func newQueryDrResponse(raw *rawQueryDrResponse, conf *Config) (*QueryDrResponse, error) {
	resp := &QueryDrResponse{
		data:    raw,
		message: lookupTransactionMessage(raw.ResponseCode, conf.Locale),
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

func (resp *QueryDrResponse) ResponseID() string {
	return resp.data.ResponseID
}

func (resp *QueryDrResponse) ResponseCode() string {
	return resp.data.ResponseCode
}

// IsSuccess reports whether the lookup itself was accepted. The payment
// outcome is in TransactionStatus.
func (resp *QueryDrResponse) IsSuccess() bool {
	return resp.data.ResponseCode == ResponseCodeSuccess
}

// Message is the human-readable text for the response code in the
// configured locale. GatewayMessage carries the gateway's own wording.
func (resp *QueryDrResponse) Message() string {
	return resp.message
}

func (resp *QueryDrResponse) GatewayMessage() string {
	return resp.data.Message
}

func (resp *QueryDrResponse) TxnRef() string {
	return resp.data.TxnRef
}

// Amount is reported as received from the gateway, in minor units.
func (resp *QueryDrResponse) Amount() decimal.Decimal {
	return resp.amount
}

func (resp *QueryDrResponse) BankCode() string {
	return resp.data.BankCode
}

func (resp *QueryDrResponse) PayDate() string {
	return resp.data.PayDate
}

func (resp *QueryDrResponse) TransactionNo() string {
	return resp.data.TransactionNo
}

func (resp *QueryDrResponse) TransactionType() string {
	return resp.data.TransactionType
}

func (resp *QueryDrResponse) TransactionStatus() string {
	return resp.data.TransactionStatus
}

func (resp *QueryDrResponse) PromotionCode() string {
	return resp.data.PromotionCode
}

func (resp *QueryDrResponse) PromotionAmount() string {
	return resp.data.PromotionAmount
}

// QueryDr looks up the state of a previously initiated payment. Responses
// with a code in [90,99] are returned without signature verification; any
// other response fails with ErrInvalidResponseChecksum unless its
// signature matches.
func (cli *Client) QueryDr(ctx context.Context, req *QueryDrRequest) (*QueryDrResponse, error) {
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

	var rawResp rawQueryDrResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}
	if err := rawResp.verifySignature(cli.conf); err != nil {
		return nil, err
	}
	return newQueryDrResponse(&rawResp, cli.conf)
}

package vnpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundRequestSignPayload(t *testing.T) {
	raw := &rawRefundRequest{
		RequestID:       "abc12345",
		Version:         "2.1.0",
		Command:         "refund",
		TmnCode:         "DEMOV210",
		TransactionType: RefundTransactionTypeFull,
		TxnRef:          "12345678",
		Amount:          "100000",
		TransactionDate: "20240101103000",
		CreateBy:        "operator",
		CreateDate:      "20240102090000",
		IpAddr:          "192.168.0.1",
		OrderInfo:       "Hoan tien don hang 12345678",
	}

	// TransactionNo is unset: its segment stays empty but keeps its slot.
	want := "abc12345|2.1.0|refund|DEMOV210|02|12345678|100000||20240101103000|operator|20240102090000|192.168.0.1|Hoan tien don hang 12345678"
	assert.Equal(t, want, raw.signPayload())
	assert.Equal(t,
		"1eec63d5696cba1eb19b9a772dcb451be7e33f8200bdbb5381ddc34b18a3bb7b8d46b0ed0fb69d89d9fbbd96da2f232deb1ee478f4c8bfac1495d946930e6e63",
		signer{}.Sign(HashAlgoSHA512, "SECRET", raw.signPayload()))
}

func testRefundRequest() *RefundRequest {
	return &RefundRequest{
		RequestID:       "abc12345",
		TxnRef:          "12345678",
		Amount:          decimal.NewFromInt(1000),
		TransactionType: RefundTransactionTypeFull,
		TransactionDate: time.Date(2024, 1, 1, 3, 30, 0, 0, time.UTC),
		CreateBy:        "operator",
		OrderInfo:       "Hoan tien don hang 12345678",
		IpAddr:          "192.168.0.1",
	}
}

func TestRefundRequestToRaw(t *testing.T) {
	cli, err := NewClient(EnvSandbox, testConfig())
	require.NoError(t, err)

	req := testRefundRequest()
	req.RequestID = ""
	raw := req.toRaw(cli.conf)

	assert.Len(t, raw.RequestID, 32, "request id generated when empty")
	assert.Equal(t, "refund", raw.Command)
	assert.Equal(t, "100000", raw.Amount, "wire amount in minor units")
	assert.Equal(t, "02", raw.TransactionType)
	assert.Equal(t, "20240101103000", raw.TransactionDate)
	assert.Equal(t, "operator", raw.CreateBy)
	assert.Equal(t, signer{}.Sign(HashAlgoSHA512, "SECRET", raw.signPayload()), raw.SecureHash)
}

func TestRefundRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RefundRequest)
		wantErr error
	}{
		{"full refund", func(r *RefundRequest) {}, nil},
		{"partial refund", func(r *RefundRequest) { r.TransactionType = RefundTransactionTypePartial }, nil},
		{"missing txn ref", func(r *RefundRequest) { r.TxnRef = "" }, ErrMissingTxnRef},
		{"zero amount", func(r *RefundRequest) { r.Amount = decimal.Zero }, ErrInvalidAmount},
		{
			"amount below minor unit resolution",
			func(r *RefundRequest) { r.Amount = decimal.RequireFromString("0.005") },
			ErrInvalidAmount,
		},
		{"empty transaction type", func(r *RefundRequest) { r.TransactionType = "" }, ErrInvalidTransactionType},
		{"unknown transaction type", func(r *RefundRequest) { r.TransactionType = "01" }, ErrInvalidTransactionType},
		{"missing transaction date", func(r *RefundRequest) { r.TransactionDate = time.Time{} }, ErrMissingTransactionDate},
		{"missing create by", func(r *RefundRequest) { r.CreateBy = "" }, ErrMissingCreateBy},
		{"missing order info", func(r *RefundRequest) { r.OrderInfo = "" }, ErrMissingOrderInfo},
		{"missing client ip", func(r *RefundRequest) { r.IpAddr = "" }, ErrMissingIPAddr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRefundRequest()
			tt.mutate(req)
			if tt.wantErr == nil {
				assert.NoError(t, req.Validate())
			} else {
				assert.ErrorIs(t, req.Validate(), tt.wantErr)
			}
		})
	}
}

func TestRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/merchant_webapi/api/transaction", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refund", body["vnp_Command"])
		assert.Equal(t, "02", body["vnp_TransactionType"])
		assert.Equal(t, "100000", body["vnp_Amount"])
		assert.Equal(t, "operator", body["vnp_CreateBy"])
		assert.Empty(t, body["vnp_TransactionNo"])

		payload := encodePipe(
			body["vnp_RequestId"], body["vnp_Version"], body["vnp_Command"],
			body["vnp_TmnCode"], body["vnp_TransactionType"], body["vnp_TxnRef"],
			body["vnp_Amount"], body["vnp_TransactionNo"], body["vnp_TransactionDate"],
			body["vnp_CreateBy"], body["vnp_CreateDate"], body["vnp_IpAddr"],
			body["vnp_OrderInfo"],
		)
		assert.Equal(t, signer{}.Sign(HashAlgoSHA512, "SECRET", payload), body["vnp_SecureHash"])

		resp := rawRefundResponse{
			ResponseID:        "resp101",
			Command:           "refund",
			ResponseCode:      "00",
			Message:           "Success",
			TmnCode:           body["vnp_TmnCode"],
			TxnRef:            body["vnp_TxnRef"],
			Amount:            "100000",
			BankCode:          "NCB",
			PayDate:           "20240102090500",
			TransactionNo:     "14400997",
			TransactionType:   "02",
			TransactionStatus: "00",
			OrderInfo:         body["vnp_OrderInfo"],
		}
		json.NewEncoder(w).Encode(map[string]string{
			"vnp_ResponseId":        resp.ResponseID,
			"vnp_Command":           resp.Command,
			"vnp_ResponseCode":      resp.ResponseCode,
			"vnp_Message":           resp.Message,
			"vnp_TmnCode":           resp.TmnCode,
			"vnp_TxnRef":            resp.TxnRef,
			"vnp_Amount":            resp.Amount,
			"vnp_BankCode":          resp.BankCode,
			"vnp_PayDate":           resp.PayDate,
			"vnp_TransactionNo":     resp.TransactionNo,
			"vnp_TransactionType":   resp.TransactionType,
			"vnp_TransactionStatus": resp.TransactionStatus,
			"vnp_OrderInfo":         resp.OrderInfo,
			"vnp_SecureHash":        signer{}.Sign(HashAlgoSHA512, "SECRET", resp.signPayload()),
		})
	}))
	defer server.Close()

	cli := newTestClient(t, server.URL, testConfig())

	resp, err := cli.Refund(context.Background(), testRefundRequest())
	require.NoError(t, err)

	assert.Equal(t, "resp101", resp.ResponseID())
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "Yêu cầu thành công", resp.Message())
	assert.Equal(t, "Success", resp.GatewayMessage())
	assert.True(t, decimal.NewFromInt(100000).Equal(resp.Amount()), "amount stays in minor units")
	assert.Equal(t, "14400997", resp.TransactionNo())
	assert.Equal(t, "02", resp.TransactionType())
	assert.Equal(t, "00", resp.TransactionStatus())
}

func TestRefundSoftErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"vnp_ResponseId":   "resp102",
			"vnp_Command":      "refund",
			"vnp_ResponseCode": "94",
			"vnp_Message":      "Duplicated request",
		})
	}))
	defer server.Close()

	cli := newTestClient(t, server.URL, testConfig())

	resp, err := cli.Refund(context.Background(), testRefundRequest())
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "94", resp.ResponseCode())
	assert.Equal(t, "Yêu cầu trùng lặp trong thời gian giới hạn", resp.Message())
}

func TestRefundBadChecksum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"vnp_ResponseId":   "resp103",
			"vnp_Command":      "refund",
			"vnp_ResponseCode": "00",
			"vnp_Message":      "Success",
			"vnp_TmnCode":      "DEMOV210",
			"vnp_TxnRef":       "12345678",
			"vnp_Amount":       "100000",
			"vnp_SecureHash":   "deadbeef",
		})
	}))
	defer server.Close()

	cli := newTestClient(t, server.URL, testConfig())

	resp, err := cli.Refund(context.Background(), testRefundRequest())
	assert.ErrorIs(t, err, ErrInvalidResponseChecksum)
	assert.Nil(t, resp)
}

func TestRefundUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cli := newTestClient(t, server.URL, testConfig())

	_, err := cli.Refund(context.Background(), testRefundRequest())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestRefundResponseKeepsLiteralText(t *testing.T) {
	// Unlike querydr, refund responses are hashed verbatim: a literal
	// "undefined" in a field changes the digest.
	resp := rawRefundResponse{
		ResponseID:   "resp104",
		Command:      "refund",
		ResponseCode: "00",
		Message:      "Success",
		TmnCode:      "DEMOV210",
		TxnRef:       "12345678",
		Amount:       "100000",
	}
	clean := resp.signPayload()

	resp.BankCode = "undefined"
	tainted := resp.signPayload()

	assert.True(t, strings.Contains(tainted, "undefined"))
	assert.NotEqual(t, clean, tainted)
	assert.NotEqual(t,
		signer{}.Sign(HashAlgoSHA512, "SECRET", clean),
		signer{}.Sign(HashAlgoSHA512, "SECRET", tainted))
}

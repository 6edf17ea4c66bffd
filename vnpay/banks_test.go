package vnpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBankList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/qrpayauth/api/merchant/get_bank_list", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "DEMOV210", r.FormValue("tmn_code"))

		json.NewEncoder(w).Encode([]map[string]any{
			{
				"bank_code":     "NCB",
				"bank_name":     "Ngan hang NCB",
				"logo_link":     "/paymentv2/images/img/logos/bank/big/ncb.svg",
				"bank_type":     1,
				"display_order": 1,
			},
			{
				"bank_code":     "VNPAYQR",
				"bank_name":     "Cong thanh toan VNPAYQR",
				"logo_link":     "https://cdn.example.com/logos/vnpayqr.svg",
				"bank_type":     4,
				"display_order": 0,
			},
		})
	}))
	defer server.Close()

	cli := newTestClient(t, server.URL, testConfig())

	banks, err := cli.GetBankList(context.Background())
	require.NoError(t, err)
	require.Len(t, banks, 2)

	assert.Equal(t, "NCB", banks[0].Code)
	assert.Equal(t, "Ngan hang NCB", banks[0].Name)
	assert.Equal(t, 1, banks[0].Type)
	assert.Equal(t, 1, banks[0].DisplayOrder)
	// Relative logo paths resolve against the gateway host.
	assert.Equal(t, server.URL+"/paymentv2/images/img/logos/bank/big/ncb.svg", banks[0].LogoURL)

	// Absolute ones pass through untouched.
	assert.Equal(t, "https://cdn.example.com/logos/vnpayqr.svg", banks[1].LogoURL)
}

func TestGetBankListUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	cli := newTestClient(t, server.URL, testConfig())

	banks, err := cli.GetBankList(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Nil(t, banks)
}

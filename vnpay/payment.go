package vnpay

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

type PaymentRequest struct {
	// Merchant transaction reference, unique per terminal per day.
	TxnRef string
	// Amount in major VND units. The gateway receives it multiplied by 100.
	Amount decimal.Decimal

	OrderInfo string
	// Merchandise category code. Empty falls back to the config default.
	OrderType string
	// Preselected bank/wallet code, e.g. NCB or VNPAYQR. Optional.
	BankCode string
	// Customer IP as seen by the merchant.
	IpAddr string
	// Overrides Config.ReturnURL when set.
	ReturnURL string
	// Overrides Config.Locale when set.
	Locale language.Tag

	// Zero value means "now" in the merchant timezone.
	CreateDate time.Time
	// Payment URL expiry. Optional.
	ExpireDate time.Time
}

func (req *PaymentRequest) Validate() error {
	if req.TxnRef == "" {
		return ErrMissingTxnRef
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	// The wire amount is minor units; a fraction left after x100 cannot be
	// represented.
	if !req.Amount.Mul(decimal.NewFromInt(100)).IsInteger() {
		return ErrInvalidAmount
	}
	if req.OrderInfo == "" {
		return ErrMissingOrderInfo
	}
	if req.IpAddr == "" {
		return ErrMissingIPAddr
	}
	return nil
}

func (req *PaymentRequest) toRaw(conf *Config) *rawPaymentRequest {
	raw := &rawPaymentRequest{
		Version:   conf.Version,
		Command:   conf.Command,
		TmnCode:   conf.TmnCode,
		Amount:    req.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0),
		BankCode:  req.BankCode,
		CurrCode:  conf.CurrCode,
		IpAddr:    req.IpAddr,
		OrderInfo: req.OrderInfo,
		OrderType: conf.OrderType,
		ReturnURL: conf.ReturnURL,
		TxnRef:    req.TxnRef,
	}
	if req.OrderType != "" {
		raw.OrderType = req.OrderType
	}
	if req.ReturnURL != "" {
		raw.ReturnURL = req.ReturnURL
	}

	locale := req.Locale
	if locale == language.Und {
		locale = conf.Locale
	}
	raw.Locale = getLocaleCode(locale)

	createDate := req.CreateDate
	if createDate.IsZero() {
		createDate = conf.now()
	}
	raw.CreateDate = conf.formatTime(createDate)
	if !req.ExpireDate.IsZero() {
		raw.ExpireDate = conf.formatTime(req.ExpireDate)
	}
	return raw
}

type rawPaymentRequest struct {
	// Protocol version, e.g. 2.1.0
	Version string
	// Fixed to "pay" unless the terminal is provisioned otherwise
	Command string
	// Terminal code (8 chars)
	TmnCode string
	// Minor units: major VND amount multiplied by 100, digits only
	Amount string
	// Optional bank/wallet preselection
	BankCode string
	// yyyyMMddHHmmss in GMT+7
	CreateDate string
	// ISO 4217, only VND is accepted
	CurrCode string
	// yyyyMMddHHmmss in GMT+7. Optional
	ExpireDate string
	// Customer IPv4/IPv6
	IpAddr string
	// vn or en
	Locale string
	// Order description shown on the payment page
	OrderInfo string
	// Merchandise category code
	OrderType string
	// Absolute merchant landing URL
	ReturnURL string
	// Unique per terminal per day
	TxnRef string
	// Computed over the sorted canonical string of all fields above
	SecureHash string
}

func (raw *rawPaymentRequest) Values() url.Values {
	values := url.Values{}
	values.Set("vnp_Version", raw.Version)
	values.Set("vnp_Command", raw.Command)
	values.Set("vnp_TmnCode", raw.TmnCode)
	values.Set("vnp_Amount", raw.Amount)
	values.Set("vnp_BankCode", raw.BankCode)
	values.Set("vnp_CreateDate", raw.CreateDate)
	values.Set("vnp_CurrCode", raw.CurrCode)
	values.Set("vnp_ExpireDate", raw.ExpireDate)
	values.Set("vnp_IpAddr", raw.IpAddr)
	values.Set("vnp_Locale", raw.Locale)
	values.Set("vnp_OrderInfo", raw.OrderInfo)
	values.Set("vnp_OrderType", raw.OrderType)
	values.Set("vnp_ReturnUrl", raw.ReturnURL)
	values.Set("vnp_TxnRef", raw.TxnRef)
	return values
}

// signedQuery produces the final query string: the sorted canonical form
// of the request fields with the signature appended. The signature covers
// the canonical string byte-for-byte, so the query must never be re-sorted
// or re-encoded afterwards.
func (raw *rawPaymentRequest) signedQuery(conf *Config) string {
	query := encodeSorted(raw.Values())
	raw.SecureHash = signer{}.Sign(conf.HashAlgo, conf.HashSecret, query)
	return query + "&vnp_SecureHash=" + raw.SecureHash
}

// CreatePaymentURL builds the redirect URL that sends the customer to the
// gateway's payment page. Defaults merge as caller field > config default
// > protocol default.
func (cli *Client) CreatePaymentURL(_ context.Context, req *PaymentRequest) (*url.URL, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ReturnURL == "" && cli.conf.ReturnURL == "" {
		return nil, ErrMissingReturnURL
	}

	raw := req.toRaw(cli.conf)
	endpoint := cli.base.ResolveReference(_PaymentPath)
	endpoint.RawQuery = raw.signedQuery(cli.conf)
	return endpoint, nil
}

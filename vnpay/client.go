// Package vnpay implements the merchant side of the VNPay payment gateway
// protocol: building signed payment redirect URLs, verifying return-URL and
// IPN callbacks, querying transaction status (querydr) and issuing refunds.
//
// Every operation signs a canonical string derived from its field set. Two
// canonicalization rules exist: payment URLs and callbacks use the sorted
// key=value form, querydr/refund use fixed-order pipe-joined values. The
// field order of the pipe form is part of the gateway contract and is
// hard-coded per operation.
package vnpay

import (
	"net/http"
	"net/url"
	"time"

	httptransport "github.com/decode-ex/vnpay-sdk/internal/http_transport"
	"golang.org/x/text/language"
)

const (
	_SANDBOX_BASE_URL = "https://sandbox.vnpayment.vn/"
	_PROD_BASE_URL    = "https://pay.vnpay.vn/"
)

const (
	_DEFAULT_VERSION    = "2.1.0"
	_DEFAULT_CURR_CODE  = "VND"
	_DEFAULT_ORDER_TYPE = "other"
	_DEFAULT_COMMAND    = "pay"

	// Gateway timestamp layout (yyyyMMddHHmmss), always rendered in the
	// merchant timezone below.
	_TIME_FORMAT = "20060102150405"
	_TIMEZONE    = "Asia/Ho_Chi_Minh"
)

var (
	_PaymentPath, _     = url.Parse("/paymentv2/vpcpay.html")
	_TransactionPath, _ = url.Parse("/merchant_webapi/api/transaction")
	_BankListPath, _    = url.Parse("/qrpayauth/api/merchant/get_bank_list")
)

type Env int

const (
	EnvSandbox Env = iota
	EnvProduction
)

func (e Env) baseURL() string {
	switch e {
	case EnvSandbox:
		return _SANDBOX_BASE_URL
	case EnvProduction:
		return _PROD_BASE_URL
	default:
		return _SANDBOX_BASE_URL
	}
}

type Config struct {
	// Terminal code issued by the gateway (vnp_TmnCode).
	TmnCode string
	// Shared secret for the HMAC signatures.
	HashSecret string
	// Digest for all signatures. Zero value is HashAlgoSHA512.
	HashAlgo HashAlgo

	// Default landing URL after payment (vnp_ReturnUrl). A request may
	// carry its own.
	ReturnURL string
	// Display language on gateway pages and for looked-up messages.
	// Defaults to Vietnamese.
	Locale language.Tag

	// Protocol defaults, filled during NewClient when left empty.
	Version   string
	CurrCode  string
	OrderType string
	Command   string

	tz *time.Location
}

// Client is safe for concurrent use; the config is never mutated after
// construction.
type Client struct {
	http *http.Client
	conf *Config
	base *url.URL
}

func NewClient(env Env, conf Config) (*Client, error) {
	if conf.TmnCode == "" {
		return nil, ErrEmptyTmnCode
	}
	if conf.HashSecret == "" {
		return nil, ErrEmptyHashSecret
	}
	if conf.Version == "" {
		conf.Version = _DEFAULT_VERSION
	}
	if conf.CurrCode == "" {
		conf.CurrCode = _DEFAULT_CURR_CODE
	}
	if conf.OrderType == "" {
		conf.OrderType = _DEFAULT_ORDER_TYPE
	}
	if conf.Command == "" {
		conf.Command = _DEFAULT_COMMAND
	}
	if conf.Locale == language.Und {
		conf.Locale = language.Vietnamese
	}

	tz, err := time.LoadLocation(_TIMEZONE)
	if err != nil {
		return nil, err
	}
	conf.tz = tz

	base, err := url.Parse(env.baseURL())
	if err != nil {
		return nil, err
	}
	transport, err := httptransport.NewTransport(env.baseURL())
	if err != nil {
		return nil, err
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   time.Minute,
		},
		conf: &conf,
		base: base,
	}, nil
}

func NewSandboxClient(conf Config) (*Client, error) {
	return NewClient(EnvSandbox, conf)
}

func NewProductionClient(conf Config) (*Client, error) {
	return NewClient(EnvProduction, conf)
}

// now is the merchant-local wall clock used for generated timestamps.
func (conf *Config) now() time.Time {
	return time.Now().In(conf.tz)
}

// formatTime renders t in the gateway's timestamp layout, converted to the
// merchant timezone first.
func (conf *Config) formatTime(t time.Time) string {
	return t.In(conf.tz).Format(_TIME_FORMAT)
}

// parseTime parses a gateway timestamp. It rejects values that are not
// exactly fourteen digits of valid date/time.
func (conf *Config) parseTime(value string) (time.Time, error) {
	return time.ParseInLocation(_TIME_FORMAT, value, conf.tz)
}

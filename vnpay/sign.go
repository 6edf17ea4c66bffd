package vnpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"net/url"
	"sort"
	"strings"

	"github.com/decode-ex/vnpay-sdk/internal/strings2"
)

// HashAlgo selects the HMAC digest used for every signature in the
// protocol. The gateway expects SHA512 unless the merchant account was
// provisioned otherwise.
type HashAlgo int

const (
	HashAlgoSHA512 HashAlgo = iota
	HashAlgoSHA256
)

func (a HashAlgo) hasher() func() hash.Hash {
	switch a {
	case HashAlgoSHA256:
		return sha256.New
	default:
		return sha512.New
	}
}

// Name reports the gateway's identifier for the algorithm, as carried in
// the vnp_SecureHashType callback hint.
func (a HashAlgo) Name() string {
	switch a {
	case HashAlgoSHA256:
		return "HmacSHA256"
	default:
		return "HmacSHA512"
	}
}

// encodeSorted builds the sorted canonical string: keys in byte order,
// values query-escaped, pairs joined with '&'. Keys whose value is empty
// are excluded. The output doubles as the redirect URL's query string, so
// it must stay byte-identical to what the gateway hashes on its side.
func encodeSorted(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if values.Get(k) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i != 0 {
			sb.WriteString("&")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(url.QueryEscape(values.Get(k)))
	}
	return sb.String()
}

// encodePipe joins the values with '|' in the exact order given. Absent
// values stay as empty segments; nothing is escaped. Each operation
// declares its own hard-coded field order, never derived at runtime.
func encodePipe(values ...string) string {
	return strings.Join(values, "|")
}

type signer struct{}

// Sign computes the keyed digest over payload and returns lowercase hex.
func (signer) Sign(algo HashAlgo, secret, payload string) string {
	mac := hmac.New(algo.hasher(), strings2.ToBytesNoAlloc(secret))
	mac.Write(strings2.ToBytesNoAlloc(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares a recomputed signature against a supplied one in constant
// time, tolerating case differences in the hex encoding.
func (signer) Equal(expect, got string) bool {
	if len(expect) != len(got) {
		return false
	}
	return hmac.Equal(
		strings2.ToBytesNoAlloc(strings.ToLower(expect)),
		strings2.ToBytesNoAlloc(strings.ToLower(got)),
	)
}

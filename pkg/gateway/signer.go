package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Parameter names carried on every gateway exchange.
const (
	ParamAmount       = "sp_Amount"
	ParamCurrency     = "sp_CurrCode"
	ParamLocale       = "sp_Locale"
	ParamOrderInfo    = "sp_OrderInfo"
	ParamReturnURL    = "sp_ReturnUrl"
	ParamTerminalCode = "sp_TmnCode"
	ParamTxnRef       = "sp_TxnRef"
	ParamCreateDate   = "sp_CreateDate"
	ParamResponseCode = "sp_ResponseCode"
	ParamTxnStatus    = "sp_TransactionStatus"
	ParamSecureHash   = "sp_SecureHash"
)

// Signer produces and checks HMAC-SHA512 signatures over gateway parameter
// sets. Both sides hash the same canonical query string: parameters sorted
// by name, URL-encoded, empty values and the signature itself excluded.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Canonical renders the signing payload for a parameter set.
func (s *Signer) Canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || k == ParamSecureHash {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// Sign returns the lowercase hex HMAC-SHA512 of the canonical payload.
func (s *Signer) Sign(params map[string]string) string {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(s.Canonical(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it in constant time. The
// comparison is case-insensitive on the hex digits.
func (s *Signer) Verify(params map[string]string, provided string) bool {
	if provided == "" {
		return false
	}
	expected := s.Sign(params)
	return subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(provided)),
		[]byte(expected),
	) == 1
}

package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/pkg/config"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
)

// Client builds signed redirect URLs and verifies callbacks for the hosted
// payment gateway.
type Client struct {
	cfg    config.GatewayConfig
	signer *Signer
	now    func() time.Time
}

func New(cfg config.GatewayConfig) *Client {
	return &Client{
		cfg:    cfg,
		signer: NewSigner(cfg.Secret),
		now:    time.Now,
	}
}

// PayRequest describes one payment attempt to redirect the shopper with.
type PayRequest struct {
	TxnRef    string
	Amount    decimal.Decimal
	OrderInfo string
}

// BuildPayURL renders the signed redirect URL for a payment attempt. The
// gateway expects amounts in minor units, so the whole-unit total is
// multiplied by 100 before encoding.
func (c *Client) BuildPayURL(req PayRequest) (string, error) {
	if req.TxnRef == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}
	if !req.Amount.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeInvalidAmount, "payment amount must be positive")
	}

	minor := req.Amount.Mul(decimal.NewFromInt(100))
	if !minor.Equal(minor.Truncate(0)) {
		return "", pkgerrors.New(pkgerrors.CodeInvalidAmount, "payment amount has sub-unit precision")
	}

	params := map[string]string{
		ParamAmount:       minor.Truncate(0).String(),
		ParamCurrency:     c.cfg.CurrencyCode,
		ParamLocale:       c.cfg.Locale,
		ParamOrderInfo:    req.OrderInfo,
		ParamReturnURL:    c.cfg.ReturnURL,
		ParamTerminalCode: c.cfg.TerminalCode,
		ParamTxnRef:       req.TxnRef,
		ParamCreateDate:   c.now().UTC().Format("20060102150405"),
	}
	params[ParamSecureHash] = c.signer.Sign(params)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return fmt.Sprintf("%s?%s", c.cfg.PayURL, q.Encode()), nil
}

// Callback is the decoded, signature-checked gateway response.
type Callback struct {
	TxnRef       string
	Amount       decimal.Decimal
	ResponseCode string
	TxnStatus    string
	Params       map[string]string
}

// Success reports whether both gateway result codes signal a completed
// payment.
func (cb Callback) Success(successCode string) bool {
	return cb.ResponseCode == successCode && cb.TxnStatus == successCode
}

// ParseCallback validates the signature of a return/IPN query and decodes
// the fields the finalizer needs. The amount comes back in minor units and
// is converted to whole units here.
func (c *Client) ParseCallback(query url.Values) (Callback, error) {
	params := make(map[string]string, len(query))
	for k := range query {
		params[k] = query.Get(k)
	}

	provided := params[ParamSecureHash]
	if !c.signer.Verify(params, provided) {
		return Callback{}, pkgerrors.New(pkgerrors.CodeSignatureMismatch, "gateway signature verification failed")
	}

	txnRef := params[ParamTxnRef]
	if txnRef == "" {
		return Callback{}, pkgerrors.New(pkgerrors.CodeValidation, "gateway callback missing transaction reference")
	}

	minor, err := strconv.ParseInt(params[ParamAmount], 10, 64)
	if err != nil || minor < 0 {
		return Callback{}, pkgerrors.New(pkgerrors.CodeInvalidAmount, "gateway callback amount is not a valid integer")
	}
	if minor%100 != 0 {
		return Callback{}, pkgerrors.New(pkgerrors.CodeInvalidAmount, "gateway callback amount has sub-unit precision")
	}

	return Callback{
		TxnRef:       txnRef,
		Amount:       decimal.NewFromInt(minor / 100),
		ResponseCode: params[ParamResponseCode],
		TxnStatus:    params[ParamTxnStatus],
		Params:       params,
	}, nil
}

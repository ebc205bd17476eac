package wallet

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
	"github.com/frahmantamala/wallet-payments/internal/core/common/validation"
)

const (
	TagDeposit      = "deposit"
	TagWithdraw     = "withdraw"
	TagAdminAdjust  = "admin_update"
	TagRedeemCode   = "redeem_code"
	TagSaveBankCard = "save_bank_card"
)

// Action is one ledger operation. The set of variants is closed; each maps to exactly one remote call.
type Action interface {
	Tag() string
	Validate() *internal.AppError
	fields() map[string]any
}

func amountField(amount decimal.Decimal) json.Number {
	return json.Number(amount.String())
}

// Deposit credits a manual bank transfer identified by its UTR.
type Deposit struct {
	Amount     decimal.Decimal
	UTRID      string
	ReceiptRef string
}

func (Deposit) Tag() string { return TagDeposit }

func (a Deposit) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("amount", a.Amount).Positive("Invalid amount", internal.ErrCodeInvalidAmount)
	v.Field("utrId", strings.TrimSpace(a.UTRID)).Required().MaxLength(64)
	v.Field("receiptRef", a.ReceiptRef).MaxLength(255)
	return v.Validate()
}

func (a Deposit) fields() map[string]any {
	f := map[string]any{
		"amount": amountField(a.Amount),
		"utrId":  strings.TrimSpace(a.UTRID),
	}
	if a.ReceiptRef != "" {
		f["receiptRef"] = a.ReceiptRef
	}
	return f
}

type Withdraw struct {
	Amount decimal.Decimal
}

func (Withdraw) Tag() string { return TagWithdraw }

func (a Withdraw) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("amount", a.Amount).Positive("Invalid amount", internal.ErrCodeInvalidAmount)
	return v.Validate()
}

func (a Withdraw) fields() map[string]any {
	return map[string]any{"amount": amountField(a.Amount)}
}

// AdminAdjust changes another user's balance. A negative amount debits.
type AdminAdjust struct {
	TargetUserID string
	Amount       decimal.Decimal
	Reason       string
}

func (AdminAdjust) Tag() string { return TagAdminAdjust }

func (a AdminAdjust) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("targetUserId", strings.TrimSpace(a.TargetUserID)).Required()
	v.Field("amount", a.Amount).NonZero("Invalid amount", internal.ErrCodeInvalidAmount)
	v.Field("reason", strings.TrimSpace(a.Reason)).Required().MaxLength(255)
	return v.Validate()
}

func (a AdminAdjust) fields() map[string]any {
	return map[string]any{
		"targetUserId": strings.TrimSpace(a.TargetUserID),
		"amount":       amountField(a.Amount),
		"reason":       strings.TrimSpace(a.Reason),
	}
}

type RedeemCode struct {
	Code string
}

func (RedeemCode) Tag() string { return TagRedeemCode }

func (a RedeemCode) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("code", strings.TrimSpace(a.Code)).Required().MaxLength(64)
	return v.Validate()
}

func (a RedeemCode) fields() map[string]any {
	return map[string]any{"code": strings.TrimSpace(a.Code)}
}

type SaveBankCard struct {
	HolderName string
	CardNumber string
	IFSC       string
	BankName   string
}

func (SaveBankCard) Tag() string { return TagSaveBankCard }

func (a SaveBankCard) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("holderName", strings.TrimSpace(a.HolderName)).Required().MaxLength(128)
	v.Field("bankName", strings.TrimSpace(a.BankName)).Required().MaxLength(128)
	v.Field("cardNumber", a.CardNumber).Custom(func(interface{}) *internal.AppError {
		return validation.ValidateCardNumber(a.CardNumber)
	})
	v.Field("ifsc", a.IFSC).Custom(func(interface{}) *internal.AppError {
		return validation.ValidateIFSC(a.IFSC)
	})
	return v.Validate()
}

func (a SaveBankCard) fields() map[string]any {
	return map[string]any{
		"holderName": strings.TrimSpace(a.HolderName),
		"cardNumber": validation.NormalizeCardNumber(a.CardNumber),
		"ifsc":       strings.ToUpper(strings.TrimSpace(a.IFSC)),
		"bankName":   strings.TrimSpace(a.BankName),
	}
}

// payload is the request body: the action tag plus the variant's own fields.
func payload(a Action) map[string]any {
	body := a.fields()
	body["action"] = a.Tag()
	return body
}

// redacted is payload with card numbers masked, for logs.
func redacted(a Action) map[string]any {
	body := payload(a)
	if card, ok := body["cardNumber"].(string); ok {
		body["cardNumber"] = validation.MaskCardNumber(card)
	}
	return body
}

package wallet

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/frahmantamala/wallet-payments/internal"
)

// ActionRequest is the flat wire form {action, ...fields} accepted by the HTTP API and the CLI.
type ActionRequest struct {
	Action       string      `json:"action"`
	Amount       json.Number `json:"amount,omitempty"`
	UTRID        string      `json:"utrId,omitempty"`
	ReceiptRef   string      `json:"receiptRef,omitempty"`
	TargetUserID string      `json:"targetUserId,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	Code         string      `json:"code,omitempty"`
	HolderName   string      `json:"holderName,omitempty"`
	CardNumber   string      `json:"cardNumber,omitempty"`
	IFSC         string      `json:"ifsc,omitempty"`
	BankName     string      `json:"bankName,omitempty"`
}

func (r ActionRequest) amount() (decimal.Decimal, *internal.AppError) {
	if r.Amount == "" {
		return decimal.Zero, internal.NewValidationFieldError("amount", "amount is required", internal.ErrCodeValidationFailed)
	}
	amount, err := decimal.NewFromString(r.Amount.String())
	if err != nil {
		return decimal.Zero, internal.NewValidationFieldError("amount", "Invalid amount", internal.ErrCodeInvalidAmount)
	}
	return amount, nil
}

// ToAction picks the variant named by the action tag.
func (r ActionRequest) ToAction() (Action, *internal.AppError) {
	switch strings.ToLower(strings.TrimSpace(r.Action)) {
	case TagDeposit:
		amount, appErr := r.amount()
		if appErr != nil {
			return nil, appErr
		}
		return Deposit{Amount: amount, UTRID: r.UTRID, ReceiptRef: r.ReceiptRef}, nil
	case TagWithdraw:
		amount, appErr := r.amount()
		if appErr != nil {
			return nil, appErr
		}
		return Withdraw{Amount: amount}, nil
	case TagAdminAdjust:
		amount, appErr := r.amount()
		if appErr != nil {
			return nil, appErr
		}
		return AdminAdjust{TargetUserID: r.TargetUserID, Amount: amount, Reason: r.Reason}, nil
	case TagRedeemCode:
		return RedeemCode{Code: r.Code}, nil
	case TagSaveBankCard:
		return SaveBankCard{HolderName: r.HolderName, CardNumber: r.CardNumber, IFSC: r.IFSC, BankName: r.BankName}, nil
	default:
		return nil, internal.NewValidationFieldError("action", "Unknown wallet action", internal.ErrCodeInvalidAction)
	}
}

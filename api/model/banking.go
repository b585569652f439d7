package model

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/regiohub/regio/model"
)

type Transfer struct {
	ReceiverCode string          `json:"receiver_code"`
	AmountTime   int64           `json:"amount_time"`
	AmountMoney  decimal.Decimal `json:"amount_money"`
	Reference    string          `json:"reference"`
}

type CreatePaymentRequest struct {
	DebtorCode     string          `json:"debtor_code"`
	AmountTime     int64           `json:"amount_time"`
	AmountMoney    decimal.Decimal `json:"amount_money"`
	Description    string          `json:"description"`
	ExpiresInHours *int            `json:"expires_in_hours"`
}

func (t *Transfer) ToTransferRequest(sender string) model.TransferRequest {
	return model.TransferRequest{
		SenderCode:   sender,
		ReceiverCode: strings.TrimSpace(t.ReceiverCode),
		AmountTime:   t.AmountTime,
		AmountMoney:  t.AmountMoney,
		Reference:    strings.TrimSpace(t.Reference),
	}
}

// ToDraft builds the draft for a request opened by creditor.
func (p *CreatePaymentRequest) ToDraft(creditor string) model.PaymentRequestDraft {
	return model.PaymentRequestDraft{
		CreditorCode:   creditor,
		DebtorCode:     strings.TrimSpace(p.DebtorCode),
		AmountTime:     p.AmountTime,
		AmountMoney:    p.AmountMoney,
		Description:    p.Description,
		ExpiresInHours: p.ExpiresInHours,
	}
}

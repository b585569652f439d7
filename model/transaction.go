/*
Copyright 2024 Regio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the immutable record of one completed posting.
type Transaction struct {
	TransactionID    string          `json:"transaction_id"`
	SenderCode       string          `json:"sender_code"`
	ReceiverCode     string          `json:"receiver_code"`
	AmountTime       int64           `json:"amount_time"`
	AmountMoney      decimal.Decimal `json:"amount_money"`
	Reference        string          `json:"reference,omitempty"`
	IsSystemFee      bool            `json:"is_system_fee"`
	PaymentRequestID string          `json:"payment_request_id,omitempty"`
	Hash             string          `json:"hash"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Direction is the history viewer's side of a transaction.
type Direction string

const (
	DirectionOutgoing Direction = "OUTGOING"
	DirectionIncoming Direction = "INCOMING"
)

// TransactionView is a transaction as seen by one of its two parties.
type TransactionView struct {
	TransactionID    string          `json:"id"`
	Date             time.Time       `json:"date"`
	Type             Direction       `json:"type"`
	OtherPartyCode   string          `json:"other_party_code"`
	AmountTime       int64           `json:"amount_time"`
	AmountMoney      decimal.Decimal `json:"amount_money"`
	Reference        string          `json:"reference,omitempty"`
	IsSystemFee      bool            `json:"is_system_fee"`
	PaymentRequestID string          `json:"payment_request_id,omitempty"`
}

// ViewFor projects t for the given party. ok is false when code is not a party.
func (transaction *Transaction) ViewFor(code string) (view TransactionView, ok bool) {
	view = TransactionView{
		TransactionID:    transaction.TransactionID,
		Date:             transaction.CreatedAt,
		AmountTime:       transaction.AmountTime,
		AmountMoney:      transaction.AmountMoney,
		Reference:        transaction.Reference,
		IsSystemFee:      transaction.IsSystemFee,
		PaymentRequestID: transaction.PaymentRequestID,
	}
	switch code {
	case transaction.SenderCode:
		view.Type = DirectionOutgoing
		view.OtherPartyCode = transaction.ReceiverCode
	case transaction.ReceiverCode:
		view.Type = DirectionIncoming
		view.OtherPartyCode = transaction.SenderCode
	default:
		return view, false
	}
	return view, true
}

// HistoryPage is one page of a member's transaction history.
type HistoryPage struct {
	Data     []TransactionView `json:"data"`
	Count    int64             `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// Posting is everything one atomic ledger write must persist: both account rows
// (checked against their loaded versions), the new transaction, and optionally the
// payment request status swap and dispute resolution that caused it.
type Posting struct {
	Sender      *Account
	Receiver    *Account
	Transaction *Transaction
	Request     *RequestTransition
	Dispute     *Dispute
}

// TransferRequest is an immediate push payment from SenderCode to ReceiverCode.
type TransferRequest struct {
	SenderCode   string          `json:"sender_code"`
	ReceiverCode string          `json:"receiver_code"`
	AmountTime   int64           `json:"amount_time"`
	AmountMoney  decimal.Decimal `json:"amount_money"`
	Reference    string          `json:"reference,omitempty"`
}

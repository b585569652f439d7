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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Currency names one of the two independent ledgers every account carries.
type Currency string

const (
	// CurrencyTime is counted in whole minutes.
	CurrencyTime Currency = "TIME"
	// CurrencyMoney is the fixed-point monetary unit.
	CurrencyMoney Currency = "REGIO"
)

// Currencies lists both ledgers in the order limit checks run.
var Currencies = []Currency{CurrencyTime, CurrencyMoney}

// TrustTier is the ordinal reputation level gating a member's credit limit.
type TrustTier string

const (
	TierT1 TrustTier = "T1"
	TierT2 TrustTier = "T2"
	TierT3 TrustTier = "T3"
	TierT4 TrustTier = "T4"
	TierT5 TrustTier = "T5"
	TierT6 TrustTier = "T6"
)

// TrustTiers is ordered lowest to highest.
var TrustTiers = []TrustTier{TierT1, TierT2, TierT3, TierT4, TierT5, TierT6}

// Rank returns the position of the tier in TrustTiers, or -1 when unknown.
func (t TrustTier) Rank() int {
	for i, tier := range TrustTiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is one of the known tiers.
func (t TrustTier) Valid() bool {
	return t.Rank() >= 0
}

// ParseTrustTier accepts "t3" or "T3".
func ParseTrustTier(s string) (TrustTier, error) {
	tier := TrustTier(strings.ToUpper(strings.TrimSpace(s)))
	if !tier.Valid() {
		return "", fmt.Errorf("unknown trust tier %q", s)
	}
	return tier, nil
}

// GenerateUUIDWithSuffix returns "<module>_<uuid>", e.g. "txn_6f1c...".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// HashTxn fingerprints the economic content of a transaction.
func (transaction *Transaction) HashTxn() string {
	data := fmt.Sprintf("%s%s%d%s%s%t", transaction.SenderCode, transaction.ReceiverCode,
		transaction.AmountTime, transaction.AmountMoney.String(), transaction.Reference, transaction.IsSystemFee)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

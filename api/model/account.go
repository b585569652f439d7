package model

import "github.com/regiohub/regio/model"

type CreateAccount struct {
	UserCode  string `json:"user_code"`
	TrustTier string `json:"trust_tier"`
}

type UpdateTrustTier struct {
	TrustTier string `json:"trust_tier"`
}

// ToTier returns the requested tier, or T1 when none was given.
func (a *CreateAccount) ToTier() model.TrustTier {
	if a.TrustTier == "" {
		return model.TierT1
	}
	tier, _ := model.ParseTrustTier(a.TrustTier)
	return tier
}

func (u *UpdateTrustTier) ToTier() model.TrustTier {
	tier, _ := model.ParseTrustTier(u.TrustTier)
	return tier
}

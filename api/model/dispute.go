package model

import "github.com/regiohub/regio/model"

type RaiseDispute struct {
	Reason string `json:"reason"`
}

type ResolveDispute struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (r *ResolveDispute) ToAction() model.ResolutionAction {
	action, _ := model.ParseResolutionAction(r.Action)
	return action
}

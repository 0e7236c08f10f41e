package schema

import "encoding/json"

// Asset identifies an asset by code and issuing account.
// The native asset has an empty issuer.
type Asset struct {
	Code   string `json:"code"`
	Issuer string `json:"issuer,omitempty"`
}

// Operation is one entry of the flat, chronologically ordered operation list
// produced by the ingestion collaborator. Position is a layout hint; domain
// fields feed the grouping heuristic.
type Operation struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`

	SourceAccount string `json:"source_account,omitempty"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
	Destination   string `json:"destination,omitempty"`
	Account       string `json:"account,omitempty"`

	Assets []Asset `json:"assets,omitempty"`

	// Raw preserves the original operation document for jq-style extraction.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Participants returns the set of account references on this operation.
// Empty fields are omitted.
func (o *Operation) Participants() map[string]struct{} {
	set := make(map[string]struct{}, 4)
	for _, acc := range []string{o.SourceAccount, o.From, o.To, o.Destination, o.Account} {
		if acc != "" {
			set[acc] = struct{}{}
		}
	}
	return set
}

// AssetIdentities returns the set of (code, issuer) pairs on this operation,
// keyed as "code:issuer".
func (o *Operation) AssetIdentities() map[string]struct{} {
	set := make(map[string]struct{}, len(o.Assets))
	for _, a := range o.Assets {
		set[a.Code+":"+a.Issuer] = struct{}{}
	}
	return set
}

// SharesEntity reports whether two operations share at least one participant
// or one asset identity.
func (o *Operation) SharesEntity(prev *Operation) bool {
	if prev == nil {
		return false
	}
	prevParts := prev.Participants()
	for p := range o.Participants() {
		if _, ok := prevParts[p]; ok {
			return true
		}
	}
	prevAssets := prev.AssetIdentities()
	for a := range o.AssetIdentities() {
		if _, ok := prevAssets[a]; ok {
			return true
		}
	}
	return false
}

package model

import "strings"

// OrderLine is one expected service row on the reference order.
type OrderLine struct {
	RowID int64  `json:"id"`
	CPT   string `json:"cpt"`
	Units int    `json:"units"`
}

// ProviderDetails holds the provider record resolved through the order.
type ProviderDetails struct {
	Name    string `json:"billing_name"`
	TIN     string `json:"tin"`
	NPI     string `json:"npi"`
	Network string `json:"provider_network"`
	NeedOTA bool   `json:"need_ota"`
}

// CategoryMap maps procedure code -> category label, loaded once per run
// from the reference catalog and treated as immutable.
type CategoryMap map[string]string

// Category returns the stored category for a code and whether the code
// exists in the catalog at all.
func (m CategoryMap) Category(cpt string) (string, bool) {
	cat, ok := m[cpt]
	return cat, ok
}

// IsAncillary reports whether the code's category is the distinguished
// "ancillary" value, which exempts it from unit and rate restrictions.
func (m CategoryMap) IsAncillary(cpt string) bool {
	return strings.EqualFold(m[cpt], "ancillary")
}

// ValidCategory reports whether a stored category value is usable.
// Empty, "0", and whitespace-only values are invalid; they are distinct
// from a code that is missing from the catalog entirely, but both block
// category-based matching.
func ValidCategory(cat string) bool {
	if cat == "" || cat == "0" {
		return false
	}
	return strings.TrimSpace(cat) != ""
}

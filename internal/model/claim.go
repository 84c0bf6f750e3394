package model

// ServiceLine is one billed line from a normalized claim document.
// Lines are immutable once parsed; Units is always >= 1.
type ServiceLine struct {
	CPT              string   `json:"cpt"`
	Modifiers        []string `json:"modifiers,omitempty"`
	Units            int      `json:"units"`
	ChargeCents      int64    `json:"charge_cents"`
	DiagnosisPointer string   `json:"diagnosis_pointer,omitempty"`
}

// Claim is the normalized billing document for one encounter.
// One claim adjudicates against exactly one order.
type Claim struct {
	PatientName      string        `json:"patient_name"`
	DateOfService    string        `json:"date_of_service"`
	OrderID          string        `json:"order_id"`
	Lines            []ServiceLine `json:"line_items"`
	BillingTIN       string        `json:"billing_provider_tin"`
	BillingNPI       string        `json:"billing_provider_npi"`
	TotalChargeCents int64         `json:"total_charge_cents"`
	SourceFile       string        `json:"source_file,omitempty"`
}

// CPTCodes returns the distinct procedure codes on the claim, in first-seen order.
func (c *Claim) CPTCodes() []string {
	seen := make(map[string]bool, len(c.Lines))
	codes := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		if !seen[line.CPT] {
			seen[line.CPT] = true
			codes = append(codes, line.CPT)
		}
	}
	return codes
}

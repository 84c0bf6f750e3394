// Package claimfile parses normalized claim documents: the output contract
// of the upstream HCFA normalizer. One JSON file holds one claim.
package claimfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chrscato/BillReview-system/internal/model"
)

// document is the on-disk JSON shape produced by the normalizer.
type document struct {
	PatientName        string     `json:"patient_name"`
	DateOfService      string     `json:"date_of_service"`
	OrderID            string     `json:"order_id"`
	LineItems          []lineItem `json:"line_items"`
	BillingProviderTIN string     `json:"billing_provider_tin"`
	BillingProviderNPI string     `json:"billing_provider_npi"`
	TotalCharge        flexMoney  `json:"total_charge"`
}

// lineItem mirrors one normalized service line. Modifier is a comma-joined
// string or null; units arrive as a number or numeric string.
type lineItem struct {
	CPT      string    `json:"cpt"`
	Modifier *string   `json:"modifier"`
	Units    flexInt   `json:"units"`
	Charge   flexMoney `json:"charge"`
}

// Load reads and parses one claim document from disk.
func Load(path string) (*model.Claim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claim file: %w", err)
	}
	claim, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse claim file %s: %w", filepath.Base(path), err)
	}
	claim.SourceFile = path
	return claim, nil
}

// Parse decodes a claim document and normalizes it into the typed model.
func Parse(data []byte) (*model.Claim, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.OrderID == "" {
		return nil, fmt.Errorf("claim has no order_id")
	}

	claim := &model.Claim{
		PatientName:      doc.PatientName,
		DateOfService:    doc.DateOfService,
		OrderID:          doc.OrderID,
		BillingTIN:       doc.BillingProviderTIN,
		BillingNPI:       doc.BillingProviderNPI,
		TotalChargeCents: int64(doc.TotalCharge),
		Lines:            make([]model.ServiceLine, 0, len(doc.LineItems)),
	}

	for i, item := range doc.LineItems {
		cpt := strings.TrimSpace(item.CPT)
		if cpt == "" {
			return nil, fmt.Errorf("line %d has no cpt code", i+1)
		}
		units := int(item.Units)
		if units < 1 {
			units = 1
		}
		claim.Lines = append(claim.Lines, model.ServiceLine{
			CPT:         cpt,
			Modifiers:   SplitModifiers(item.Modifier),
			Units:       units,
			ChargeCents: int64(item.Charge),
		})
	}
	return claim, nil
}

// ErrorVerdict builds the process_error verdict for a claim file that
// could not be read or parsed, so the batch still gets one verdict per file.
func ErrorVerdict(path string, err error) *model.Verdict {
	return &model.Verdict{
		ID:             uuid.New(),
		FileName:       path,
		Timestamp:      time.Now(),
		Status:         model.StatusFail,
		ValidationType: model.ValidationProcess,
		Error:          err.Error(),
		Messages:       []string{fmt.Sprintf("Error processing file: %s", err)},
	}
}

// SplitModifiers turns the normalizer's comma-joined modifier string into
// a trimmed slice. A nil or empty value yields nil.
func SplitModifiers(joined *string) []string {
	if joined == nil {
		return nil
	}
	var mods []string
	for _, m := range strings.Split(*joined, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			mods = append(mods, m)
		}
	}
	return mods
}

// CleanTIN strips dashes and whitespace from a tax id and requires exactly
// nine digits. Returns "" when the input cannot be cleaned.
func CleanTIN(tin string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(tin), "-", "")
	if len(cleaned) != 9 {
		return ""
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return cleaned
}

package review

import (
	"testing"

	"github.com/chrscato/BillReview-system/internal/config"
	"github.com/chrscato/BillReview-system/internal/model"
)

func TestModifierValidator_Pass(t *testing.T) {
	v := NewModifierValidator(config.DefaultRules())

	result := v.Validate([]model.ServiceLine{
		{CPT: "99213", Modifiers: []string{"59", "LT"}, Units: 1},
		{CPT: "95910", Units: 1},
	})

	if result.Status != model.StatusPass {
		t.Fatalf("status = %s, want PASS", result.Status)
	}
	if result.TotalChecked != 2 || result.TotalInvalid != 0 {
		t.Errorf("counts = checked %d invalid %d", result.TotalChecked, result.TotalInvalid)
	}
	if len(result.InvalidModifiers) != 0 {
		t.Errorf("expected empty invalid list, got %v", result.InvalidModifiers)
	}
}

func TestModifierValidator_DisallowedComponents(t *testing.T) {
	v := NewModifierValidator(config.DefaultRules())

	result := v.Validate([]model.ServiceLine{
		{CPT: "72148", Modifiers: []string{"TC"}, Units: 1},
		{CPT: "72149", Modifiers: []string{"26"}, Units: 1},
		{CPT: "99213", Modifiers: []string{"59"}, Units: 1},
	})

	if result.Status != model.StatusFail {
		t.Fatalf("status = %s, want FAIL", result.Status)
	}
	if result.TotalInvalid != 2 {
		t.Fatalf("total invalid = %d, want 2", result.TotalInvalid)
	}
	if result.InvalidModifiers[0].CPT != "72148" || result.InvalidModifiers[0].Modifier != "TC" {
		t.Errorf("unexpected first issue: %+v", result.InvalidModifiers[0])
	}
}

func TestModifierValidator_CaseInsensitive(t *testing.T) {
	v := NewModifierValidator(config.DefaultRules())

	result := v.Validate([]model.ServiceLine{
		{CPT: "72148", Modifiers: []string{"tc"}, Units: 1},
	})
	if result.Status != model.StatusFail {
		t.Fatal("lowercase tc should fail")
	}
}

package config

import "testing"

func TestValidate_RequiresClaimsDir(t *testing.T) {
	c := Config{Workers: 2}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error when --claims is missing")
	}
}

func TestValidate_ClaimsDirMustExist(t *testing.T) {
	c := Config{ClaimsDir: "/nonexistent/claims", Workers: 2}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing claims dir")
	}
}

func TestValidate_WorkersPositive(t *testing.T) {
	c := Config{ClaimsDir: t.TempDir(), Workers: 0}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for zero workers")
	}
}

func TestValidateWithDSN(t *testing.T) {
	c := Config{ClaimsDir: t.TempDir(), Workers: 1}
	if err := c.ValidateWithDSN(); err == nil {
		t.Fatal("expected error when DSN is missing")
	}
	c.DSN = "postgresql://localhost/ref"
	if err := c.ValidateWithDSN(); err != nil {
		t.Fatalf("ValidateWithDSN: %v", err)
	}
}

package model

import (
	"errors"
	"testing"
)

func TestSplitRecord(t *testing.T) {
	fields, err := splitRecord("a|b|c", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fields) != 3 || fields[0] != "a" || fields[2] != "c" {
		t.Errorf("Unexpected fields: %v", fields)
	}

	// 空フィールドも数える
	if _, err := splitRecord("a||", 3); err != nil {
		t.Errorf("Expected empty fields to be counted, got %v", err)
	}

	if _, err := splitRecord("a|b", 3); !IsValidation(err) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		value    float64
		prec     int
		expected string
	}{
		{0.02, 4, "0.0200"},
		{1000, 2, "1000.00"},
		{47, 2, "47.00"},
		{0.025, 4, "0.0250"},
		{1.005, 1, "1.0"},
	}

	for _, tt := range tests {
		if got := formatFixed(tt.value, tt.prec); got != tt.expected {
			t.Errorf("formatFixed(%v, %d): expected %s, got %s", tt.value, tt.prec, tt.expected, got)
		}
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"PLA", "Silk PLA", "PETG-CF 1.75mm"}
	for _, name := range valid {
		if err := validateName("material", name); err != nil {
			t.Errorf("validateName(%q): unexpected error: %v", name, err)
		}
	}

	invalid := []string{"", "   ", "a|b", "line\nbreak", "cr\rname"}
	for _, name := range invalid {
		if err := validateName("material", name); !IsValidation(err) {
			t.Errorf("validateName(%q): expected ValidationError, got %v", name, err)
		}
	}
}

func TestRecordError(t *testing.T) {
	inner := NewValidationError("invalid record format: expected 3 fields, got 2")
	err := &RecordError{Source: "materials.db", Line: 4, Err: inner}

	if got := err.Error(); got != "materials.db:4: invalid record format: expected 3 fields, got 2" {
		t.Errorf("Unexpected message: %s", got)
	}
	if !IsValidation(err) {
		t.Error("Expected RecordError to unwrap to ValidationError")
	}
	if !errors.Is(err, inner) {
		t.Error("Expected errors.Is to find the wrapped error")
	}
}

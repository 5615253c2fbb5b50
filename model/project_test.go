package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func newTestMaterial(t *testing.T) *Material {
	t.Helper()
	m, err := NewMaterial("PLA", 20.00, 1000.00)
	if err != nil {
		t.Fatalf("Failed to create material: %v", err)
	}
	return m
}

// TestNewProject tests the NewProject constructor with the PLA box example
func TestNewProject(t *testing.T) {
	pla := newTestMaterial(t)

	project, err := NewProject("Box", 2, 5, 100, pla, 15, 3)
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}

	if project.Name() != "Box" {
		t.Errorf("Expected name Box, got %s", project.Name())
	}
	if !almostEqual(project.DesignCost(), 30) {
		t.Errorf("Expected design cost 30, got %v", project.DesignCost())
	}
	if !almostEqual(project.PrintCost(), 15) {
		t.Errorf("Expected print cost 15, got %v", project.PrintCost())
	}
	if !almostEqual(project.MaterialCost(), 2) {
		t.Errorf("Expected material cost 2, got %v", project.MaterialCost())
	}
	if !almostEqual(project.TotalCost(), 47) {
		t.Errorf("Expected total cost 47, got %v", project.TotalCost())
	}
	if project.MaterialName() != "PLA" {
		t.Errorf("Expected material PLA, got %s", project.MaterialName())
	}
}

// TestNewProjectInvalid tests that NewProject rejects invalid input
func TestNewProjectInvalid(t *testing.T) {
	pla := newTestMaterial(t)

	if _, err := NewProject("", 1, 1, 1, pla, 1, 1); !IsValidation(err) {
		t.Errorf("Expected ValidationError for empty name, got %v", err)
	}
	if _, err := NewProject("Box", 1, 1, 1, nil, 1, 1); !IsValidation(err) {
		t.Errorf("Expected ValidationError for nil material, got %v", err)
	}
	if _, err := NewProject("A|B", 1, 1, 1, pla, 1, 1); !IsValidation(err) {
		t.Errorf("Expected ValidationError for delimiter in name, got %v", err)
	}
}

// TestProjectTotalCostInvariant checks the total cost formula for several inputs
func TestProjectTotalCostInvariant(t *testing.T) {
	pla := newTestMaterial(t)

	inputs := []struct {
		design, print, used, hourly, printRate float64
	}{
		{0, 0, 0, 0, 0},
		{1.5, 3.25, 42, 20, 1.2},
		{10, 48, 980, 35, 0.75},
		{0.1, 0.2, 0.3, 0.4, 0.5},
	}

	for _, in := range inputs {
		p, err := NewProject("P", in.design, in.print, in.used, pla, in.hourly, in.printRate)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := in.design*in.hourly + in.print*in.printRate + in.used*pla.CostPerGram()
		if !almostEqual(p.TotalCost(), want) {
			t.Errorf("Expected total %v, got %v", want, p.TotalCost())
		}
	}
}

// TestProjectSettersRecalculate tests that the time and usage setters recalculate
func TestProjectSettersRecalculate(t *testing.T) {
	pla := newTestMaterial(t)
	project, _ := NewProject("Box", 2, 5, 100, pla, 15, 3)

	project.SetDesignTime(4)
	if !almostEqual(project.TotalCost(), 77) {
		t.Errorf("Expected total 77 after SetDesignTime, got %v", project.TotalCost())
	}

	project.SetPrintTime(10)
	if !almostEqual(project.TotalCost(), 92) {
		t.Errorf("Expected total 92 after SetPrintTime, got %v", project.TotalCost())
	}

	project.SetMaterialUsed(200)
	if !almostEqual(project.TotalCost(), 94) {
		t.Errorf("Expected total 94 after SetMaterialUsed, got %v", project.TotalCost())
	}
	if project.IsStale() {
		t.Error("Expected project not to be stale after setters")
	}
}

// TestProjectRatesDoNotRecalculate tests that rate and material changes leave the cached total alone
func TestProjectRatesDoNotRecalculate(t *testing.T) {
	pla := newTestMaterial(t)
	project, _ := NewProject("Box", 2, 5, 100, pla, 15, 3)

	project.SetRates(20, 3)
	if !almostEqual(project.TotalCost(), 47) {
		t.Errorf("Expected cached total 47, got %v", project.TotalCost())
	}
	if !project.IsStale() {
		t.Error("Expected project to be stale after SetRates")
	}

	project.RecalculateCost()
	if !almostEqual(project.TotalCost(), 57) {
		t.Errorf("Expected total 57 after recalculation, got %v", project.TotalCost())
	}
}

// TestProjectSharedMaterial tests that a material update is visible through the shared
// reference while the cached total stays stale until recalculated.
func TestProjectSharedMaterial(t *testing.T) {
	pla := newTestMaterial(t)
	project, _ := NewProject("Box", 2, 5, 100, pla, 15, 3)

	if err := pla.UpdateCost(30, 1200); err != nil {
		t.Fatalf("Failed to update cost: %v", err)
	}

	if !almostEqual(project.MaterialCost(), 2.5) {
		t.Errorf("Expected material cost 2.5 from shared material, got %v", project.MaterialCost())
	}
	if !almostEqual(project.TotalCost(), 47) {
		t.Errorf("Expected stale total 47, got %v", project.TotalCost())
	}
	if !project.IsStale() {
		t.Error("Expected project to be stale")
	}

	if got := project.RecalculateCost(); !almostEqual(got, 47.5) {
		t.Errorf("Expected total 47.5 after recalculation, got %v", got)
	}
}

// TestProjectClone tests that a clone does not share the material
func TestProjectClone(t *testing.T) {
	pla := newTestMaterial(t)
	project, _ := NewProject("Box", 2, 5, 100, pla, 15, 3)

	clone := project.Clone()
	if err := pla.UpdateCost(30, 1200); err != nil {
		t.Fatalf("Failed to update cost: %v", err)
	}

	if !almostEqual(clone.MaterialCost(), 2) {
		t.Errorf("Expected clone material cost 2, got %v", clone.MaterialCost())
	}
	if clone.IsStale() {
		t.Error("Expected clone not to be stale")
	}
}

// TestProjectRecord tests record serialization
func TestProjectRecord(t *testing.T) {
	pla := newTestMaterial(t)
	project, _ := NewProject("Box", 2, 5, 100, pla, 15, 3)

	want := "Box|2.00|5.00|100.00|PLA|15.00|3.00|47.00"
	if got := project.Record(); got != want {
		t.Errorf("Expected record %s, got %s", want, got)
	}
}

// TestParseProject tests restoring a project from a record
func TestParseProject(t *testing.T) {
	pla := newTestMaterial(t)

	project, err := ParseProject("Box|2.00|5.00|100.00|PLA|15.00|3.00|47.00", pla)
	if err != nil {
		t.Fatalf("Failed to parse project: %v", err)
	}
	if project.Name() != "Box" {
		t.Errorf("Expected name Box, got %s", project.Name())
	}
	if !almostEqual(project.TotalCost(), 47) {
		t.Errorf("Expected total 47, got %v", project.TotalCost())
	}
	if project.Material() != pla {
		t.Error("Expected project to reference the given material")
	}
}

// TestParseProjectKeepsStoredTotal tests that a restored project keeps the persisted total
func TestParseProjectKeepsStoredTotal(t *testing.T) {
	tests := []struct {
		name      string
		record    string
		costPer   float64
		wantTotal float64
		wantStale bool
	}{
		{"Matches recalculation", "Box|2.00|5.00|100.00|PLA|15.00|3.00|47.00", 0.02, 47, false},
		{"Rounded to cents", "Vase|0.00|0.00|100.00|PLA|0.00|0.00|3.67", 27.5 / 750, 3.67, false},
		{"Rate rounded on save", "Box|0.00|0.00|1000.00|PLA|0.00|0.00|3333.33", 3.3333, 3333.33, true},
		{"Edited total", "Box|2.00|5.00|100.00|PLA|15.00|3.00|50.00", 0.02, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LoadMaterial("PLA", tt.costPer, 1000)
			if err != nil {
				t.Fatalf("Failed to load material: %v", err)
			}
			project, err := ParseProject(tt.record, m)
			if err != nil {
				t.Fatalf("Failed to parse project: %v", err)
			}
			if !almostEqual(project.TotalCost(), tt.wantTotal) {
				t.Errorf("Expected total %v, got %v", tt.wantTotal, project.TotalCost())
			}
			if project.IsStale() != tt.wantStale {
				t.Errorf("Expected stale=%v, got %v", tt.wantStale, project.IsStale())
			}
			if got := project.Record(); got != tt.record {
				t.Errorf("Expected record %s, got %s", tt.record, got)
			}
		})
	}
}

// TestParseProjectRecordInvalid tests malformed project records
func TestParseProjectRecordInvalid(t *testing.T) {
	tests := []struct {
		name   string
		record string
	}{
		{"Too few fields", "Box|2.00|5.00|100.00|PLA|15.00|3.00"},
		{"Too many fields", "Box|2.00|5.00|100.00|PLA|15.00|3.00|47.00|x"},
		{"Non-numeric design time", "Box|two|5.00|100.00|PLA|15.00|3.00|47.00"},
		{"Non-numeric total", "Box|2.00|5.00|100.00|PLA|15.00|3.00|lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseProjectRecord(tt.record); !IsValidation(err) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}
}

func TestParseProjectRecordMaterialName(t *testing.T) {
	rec, err := ParseProjectRecord("Vase|1.00|12.50|230.00|Silk PLA|20.00|1.50|46.85")
	if err != nil {
		t.Fatalf("Failed to parse record: %v", err)
	}
	if rec.MaterialName != "Silk PLA" {
		t.Errorf("Expected material name Silk PLA, got %s", rec.MaterialName)
	}
	if rec.TotalCost != 46.85 {
		t.Errorf("Expected total 46.85, got %v", rec.TotalCost)
	}
}

func TestProjectViews(t *testing.T) {
	pla := newTestMaterial(t)
	project, _ := NewProject("Box", 2, 5, 100, pla, 15, 3)

	if got := project.Summary(); got != "Box: $47.00" {
		t.Errorf("Expected summary 'Box: $47.00', got %q", got)
	}

	detail := project.String()
	for _, want := range []string{
		"PROJECT: Box",
		"Design Time: 2.00 hours @ $15.00/hr = $30.00",
		"Print Time: 5.00 hours @ $3.00/hr = $15.00",
		"Material: 100.00g of PLA @ $0.0200/g = $2.00",
		"TOTAL COST: $47.00",
	} {
		if !strings.Contains(detail, want) {
			t.Errorf("Expected detail to contain %q, got:\n%s", want, detail)
		}
	}
}

func TestProjectJSON(t *testing.T) {
	pla := newTestMaterial(t)
	project, _ := NewProject("Box", 2, 5, 100, pla, 15, 3)

	data, err := json.Marshal(project)
	if err != nil {
		t.Fatalf("Failed to marshal project: %v", err)
	}

	var got struct {
		Name      string  `json:"name"`
		Material  string  `json:"material"`
		TotalCost float64 `json:"total_cost"`
		Design    float64 `json:"design_cost"`
		Stale     bool    `json:"stale"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if got.Name != "Box" || got.Material != "PLA" {
		t.Errorf("Unexpected identity fields: %+v", got)
	}
	if !almostEqual(got.TotalCost, 47) || !almostEqual(got.Design, 30) {
		t.Errorf("Unexpected cost fields: %+v", got)
	}
	if got.Stale {
		t.Error("Expected stale=false")
	}
}

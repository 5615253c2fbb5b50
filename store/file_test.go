package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stsysd/printledger/model"
)

func setupTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	fs, err := NewFileStore(filepath.Join(dir, "materials.db"), filepath.Join(dir, "projects.db"))
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	return fs
}

func mustMaterial(t *testing.T, name string, cost, volume float64) *model.Material {
	t.Helper()
	m, err := model.NewMaterial(name, cost, volume)
	if err != nil {
		t.Fatalf("Failed to create material: %v", err)
	}
	return m
}

func mustProject(t *testing.T, name string, design, print, used float64, m *model.Material, hourly, printRate float64) *model.Project {
	t.Helper()
	p, err := model.NewProject(name, design, print, used, m, hourly, printRate)
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	return p
}

func TestFileStoreMissingFiles(t *testing.T) {
	fs := setupTestFileStore(t)
	ctx := context.Background()

	materials, err := fs.LoadMaterials(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(materials) != 0 {
		t.Errorf("Expected no materials, got %d", len(materials))
	}

	records, err := fs.LoadProjects(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no projects, got %d", len(records))
	}
}

func TestFileStoreSaveFormat(t *testing.T) {
	fs := setupTestFileStore(t)
	ctx := context.Background()

	pla := mustMaterial(t, "PLA", 20, 1000)
	petg := mustMaterial(t, "PETG", 25, 1000)
	if err := fs.SaveMaterials(ctx, []*model.Material{petg, pla}); err != nil {
		t.Fatalf("Failed to save materials: %v", err)
	}
	box := mustProject(t, "Box", 2, 5, 100, pla, 15, 3)
	if err := fs.SaveProjects(ctx, []*model.Project{box}); err != nil {
		t.Fatalf("Failed to save projects: %v", err)
	}

	data, err := os.ReadFile(fs.MaterialsPath())
	if err != nil {
		t.Fatalf("Failed to read materials file: %v", err)
	}
	if got, want := string(data), "PETG|0.0250|1000.00\nPLA|0.0200|1000.00\n"; got != want {
		t.Errorf("Unexpected materials file:\n got %q\nwant %q", got, want)
	}

	data, err = os.ReadFile(fs.ProjectsPath())
	if err != nil {
		t.Fatalf("Failed to read projects file: %v", err)
	}
	if got, want := string(data), "Box|2.00|5.00|100.00|PLA|15.00|3.00|47.00\n"; got != want {
		t.Errorf("Unexpected projects file:\n got %q\nwant %q", got, want)
	}

	// 一時ファイルが残っていないこと
	entries, err := os.ReadDir(filepath.Dir(fs.MaterialsPath()))
	if err != nil {
		t.Fatalf("Failed to read data dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}

func TestFileStoreLoadSkipsBlankLines(t *testing.T) {
	fs := setupTestFileStore(t)
	content := "PLA|0.0200|1000.00\r\n\n   \nABS|0.0180|500.00\n"
	if err := os.WriteFile(fs.MaterialsPath(), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write materials file: %v", err)
	}

	materials, err := fs.LoadMaterials(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(materials) != 2 {
		t.Fatalf("Expected 2 materials, got %d", len(materials))
	}
	if materials[0].Name() != "PLA" || materials[1].Name() != "ABS" {
		t.Errorf("Unexpected material order: %s, %s", materials[0].Name(), materials[1].Name())
	}
}

func TestFileStoreLoadLongLine(t *testing.T) {
	fs := setupTestFileStore(t)
	long := strings.Repeat("x", 128*1024)
	content := "PLA|0.0200|1000.00\n" + long + "|0.0180|500.00"
	if err := os.WriteFile(fs.MaterialsPath(), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write materials file: %v", err)
	}

	materials, err := fs.LoadMaterials(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(materials) != 2 {
		t.Fatalf("Expected 2 materials, got %d", len(materials))
	}
	if materials[1].Name() != long {
		t.Errorf("Expected long name of %d bytes, got %d", len(long), len(materials[1].Name()))
	}
}

func TestFileStoreMalformedRecord(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantLine int
	}{
		{
			name:     "material with missing field",
			file:     "materials.db",
			content:  "PLA|0.0200|1000.00\nABS|0.0180\n",
			wantLine: 2,
		},
		{
			name:     "material with bad number",
			file:     "materials.db",
			content:  "\nPLA|abc|1000.00\n",
			wantLine: 2,
		},
		{
			name:     "project with too many fields",
			file:     "projects.db",
			content:  "Box|2.00|5.00|100.00|PLA|15.00|3.00|47.00|extra\n",
			wantLine: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := setupTestFileStore(t)
			path := filepath.Join(filepath.Dir(fs.MaterialsPath()), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write file: %v", err)
			}

			var err error
			if tt.file == "materials.db" {
				_, err = fs.LoadMaterials(context.Background())
			} else {
				_, err = fs.LoadProjects(context.Background())
			}

			var recErr *model.RecordError
			if !errors.As(err, &recErr) {
				t.Fatalf("Expected RecordError, got %v", err)
			}
			if recErr.Source != tt.file {
				t.Errorf("Expected source %s, got %s", tt.file, recErr.Source)
			}
			if recErr.Line != tt.wantLine {
				t.Errorf("Expected line %d, got %d", tt.wantLine, recErr.Line)
			}
			if !model.IsValidation(err) {
				t.Errorf("Expected wrapped validation error, got %v", err)
			}
		})
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	fs := setupTestFileStore(t)
	ctx := context.Background()

	if err := fs.SaveMaterials(ctx, []*model.Material{mustMaterial(t, "PLA", 20, 1000)}); err != nil {
		t.Fatalf("Failed to save materials: %v", err)
	}
	if err := fs.SaveMaterials(ctx, nil); err != nil {
		t.Fatalf("Failed to save materials: %v", err)
	}

	materials, err := fs.LoadMaterials(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(materials) != 0 {
		t.Errorf("Expected empty collection after overwrite, got %d", len(materials))
	}
}

// Package store は、データの永続化機能を提供します。
package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/stsysd/printledger/logger"
	"github.com/stsysd/printledger/metrics"
	"github.com/stsysd/printledger/model"
)

const (
	collectionMaterials = "materials"
	collectionProjects  = "projects"
)

// Repository はマテリアルとプロジェクトをメモリ上に保持し、変更のたびに
// Backend へ同期的に保存します。1つのロックで両方のコレクションを保護します。
//
// 保存に失敗した変更はメモリ上でも取り消され、エラーが返ります。
type Repository struct {
	mu        sync.RWMutex
	backend   Backend
	log       *logger.Logger
	metrics   *metrics.Metrics
	materials map[string]*model.Material
	projects  map[string]*model.Project
}

var _ Store = (*Repository)(nil)

// NewRepository はバックエンドからマテリアル、次にプロジェクトを読み込んでRepositoryを作成します。
func NewRepository(ctx context.Context, backend Backend, log *logger.Logger, m *metrics.Metrics) (*Repository, error) {
	if log == nil {
		log = logger.NewNop()
	}
	r := &Repository{
		backend:   backend,
		log:       log,
		metrics:   m,
		materials: make(map[string]*model.Material),
		projects:  make(map[string]*model.Project),
	}

	// プロジェクトはマテリアルを参照するため、必ずマテリアルを先に読み込む
	if err := r.loadMaterials(ctx); err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	if err := r.loadProjects(ctx); err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	r.log.Debug("repository loaded",
		"materials", len(r.materials),
		"projects", len(r.projects),
	)
	return r, nil
}

func (r *Repository) loadMaterials(ctx context.Context) error {
	materials, err := r.backend.LoadMaterials(ctx)
	if err != nil {
		return err
	}
	for _, m := range materials {
		// 同名のレコードは後のものが優先される
		if _, exists := r.materials[m.Name()]; exists {
			r.log.Warn("duplicate material record overwritten", "material", m.Name())
		}
		r.materials[m.Name()] = m
	}
	return nil
}

func (r *Repository) loadProjects(ctx context.Context) error {
	records, err := r.backend.LoadProjects(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		material, ok := r.materials[rec.MaterialName]
		if !ok {
			r.log.Warn("material not found for project, skipping project",
				"project", rec.Name,
				"material", rec.MaterialName,
			)
			r.metrics.SkippedProject()
			continue
		}
		p, err := rec.Resolve(material)
		if err != nil {
			return err
		}
		if _, exists := r.projects[p.Name()]; exists {
			r.log.Warn("duplicate project record overwritten", "project", p.Name())
		}
		r.projects[p.Name()] = p
	}
	return nil
}

// saveMaterials はマテリアルを名前順で保存します。呼び出し側でロックを保持すること。
func (r *Repository) saveMaterials(ctx context.Context) error {
	if err := r.backend.SaveMaterials(ctx, sortedValues(r.materials)); err != nil {
		r.log.Error("failed to save materials", "error", err)
		r.metrics.SaveFailure(collectionMaterials)
		return fmt.Errorf("failed to save materials: %w", err)
	}
	return nil
}

// saveProjects はプロジェクトを名前順で保存します。呼び出し側でロックを保持すること。
func (r *Repository) saveProjects(ctx context.Context) error {
	if err := r.backend.SaveProjects(ctx, sortedValues(r.projects)); err != nil {
		r.log.Error("failed to save projects", "error", err)
		r.metrics.SaveFailure(collectionProjects)
		return fmt.Errorf("failed to save projects: %w", err)
	}
	return nil
}

func sortedValues[V any](m map[string]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	values := make([]V, 0, len(keys))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}

// ==================== マテリアル操作 ====================

// AddMaterial は新しいマテリアルを追加します。同名のマテリアルがあれば ErrMaterialExists を返します。
func (r *Repository) AddMaterial(ctx context.Context, material *model.Material) error {
	if err := material.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := material.Name()
	if _, exists := r.materials[name]; exists {
		return fmt.Errorf("%w: %s", model.ErrMaterialExists, name)
	}

	stored := material.Clone()
	r.materials[name] = stored
	if err := r.saveMaterials(ctx); err != nil {
		delete(r.materials, name)
		return err
	}

	r.metrics.Mutation(collectionMaterials, "add")
	return nil
}

// GetMaterial は指定された名前のマテリアルのコピーを取得します。
func (r *Repository) GetMaterial(ctx context.Context, name string) (*model.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.materials[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrMaterialNotFound, name)
	}
	return m.Clone(), nil
}

// UpdateMaterialCost は新しい購入情報でマテリアルの単価を置き換えます。
// 参照しているプロジェクトの合計コストは再計算しません（RecalculateProjects を使用）。
func (r *Repository) UpdateMaterialCost(ctx context.Context, name string, totalCost, totalVolume float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.materials[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrMaterialNotFound, name)
	}

	prev := *m
	if err := m.UpdateCost(totalCost, totalVolume); err != nil {
		return err
	}
	if err := r.saveMaterials(ctx); err != nil {
		*m = prev
		return err
	}

	r.metrics.Mutation(collectionMaterials, "update")
	return nil
}

// DeleteMaterial はマテリアルを削除します。
// プロジェクトから参照されている場合は ErrMaterialInUse を返します。
func (r *Repository) DeleteMaterial(ctx context.Context, name string) error {
	return r.deleteMaterial(ctx, name, false)
}

// ForceDeleteMaterial は参照の有無にかかわらずマテリアルを削除します。
// 参照していたプロジェクトはメモリ上では最後のマテリアルを保持し続けますが、
// 次回の読み込み時にはスキップされます。
func (r *Repository) ForceDeleteMaterial(ctx context.Context, name string) error {
	return r.deleteMaterial(ctx, name, true)
}

func (r *Repository) deleteMaterial(ctx context.Context, name string, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.materials[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrMaterialNotFound, name)
	}

	if users := r.projectsUsing(name); len(users) > 0 {
		if !force {
			return fmt.Errorf("%w: %s is used by %s", model.ErrMaterialInUse, name, strings.Join(users, ", "))
		}
		r.log.Warn("deleting material still referenced by projects",
			"material", name,
			"projects", users,
		)
	}

	delete(r.materials, name)
	if err := r.saveMaterials(ctx); err != nil {
		r.materials[name] = m
		return err
	}

	r.metrics.Mutation(collectionMaterials, "delete")
	return nil
}

// projectsUsing はマテリアルを参照するプロジェクト名を返します。呼び出し側でロックを保持すること。
func (r *Repository) projectsUsing(materialName string) []string {
	var names []string
	for name, p := range r.projects {
		if p.MaterialName() == materialName {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ListMaterials はすべてのマテリアルのコピーを名前順に返します。
func (r *Repository) ListMaterials(ctx context.Context) []*model.Material {
	r.mu.RLock()
	defer r.mu.RUnlock()

	materials := sortedValues(r.materials)
	for i, m := range materials {
		materials[i] = m.Clone()
	}
	return materials
}

// MaterialCount はマテリアルの件数を返します。
func (r *Repository) MaterialCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.materials)
}

// ClearMaterials はすべてのマテリアルを削除します。
// プロジェクトが残っている場合は ErrMaterialInUse を返します。
func (r *Repository) ClearMaterials(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.projects) > 0 {
		return fmt.Errorf("%w: %d projects remain", model.ErrMaterialInUse, len(r.projects))
	}

	prev := r.materials
	r.materials = make(map[string]*model.Material)
	if err := r.saveMaterials(ctx); err != nil {
		r.materials = prev
		return err
	}

	r.metrics.Mutation(collectionMaterials, "clear")
	return nil
}

// ==================== プロジェクト操作 ====================

// AddProject は新しいプロジェクトを追加します。同名のプロジェクトがあれば ErrProjectExists を返します。
// プロジェクトはリポジトリ内の同名マテリアルに結び付け直され、合計コストが再計算されます。
func (r *Repository) AddProject(ctx context.Context, project *model.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := project.Name()
	if _, exists := r.projects[name]; exists {
		return fmt.Errorf("%w: %s", model.ErrProjectExists, name)
	}
	stored, err := r.link(project)
	if err != nil {
		return err
	}

	r.projects[name] = stored
	if err := r.saveProjects(ctx); err != nil {
		delete(r.projects, name)
		return err
	}

	r.metrics.Mutation(collectionProjects, "add")
	return nil
}

// link はプロジェクトのコピーをリポジトリ内のマテリアルに結び付けます。呼び出し側でロックを保持すること。
func (r *Repository) link(project *model.Project) (*model.Project, error) {
	material, ok := r.materials[project.MaterialName()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrMaterialNotFound, project.MaterialName())
	}
	stored := project.Clone()
	if err := stored.SetMaterial(material); err != nil {
		return nil, err
	}
	stored.RecalculateCost()
	return stored, nil
}

// GetProject は指定された名前のプロジェクトのコピーを取得します。
func (r *Repository) GetProject(ctx context.Context, name string) (*model.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrProjectNotFound, name)
	}
	return p.Clone(), nil
}

// UpdateProject は name のプロジェクトを replacement で置き換えます。
// replacement の名前が異なる場合は1回の操作で名前を変更します。
// 変更後の名前が別の既存プロジェクトと衝突する場合は ErrProjectExists を返します。
func (r *Repository) UpdateProject(ctx context.Context, name string, replacement *model.Project) error {
	if err := replacement.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.projects[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrProjectNotFound, name)
	}
	newName := replacement.Name()
	if newName != name {
		if _, exists := r.projects[newName]; exists {
			return fmt.Errorf("%w: %s", model.ErrProjectExists, newName)
		}
	}
	stored, err := r.link(replacement)
	if err != nil {
		return err
	}

	delete(r.projects, name)
	r.projects[newName] = stored
	if err := r.saveProjects(ctx); err != nil {
		delete(r.projects, newName)
		r.projects[name] = old
		return err
	}

	r.metrics.Mutation(collectionProjects, "update")
	return nil
}

// DeleteProject は指定された名前のプロジェクトを削除します。
func (r *Repository) DeleteProject(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[name]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrProjectNotFound, name)
	}

	delete(r.projects, name)
	if err := r.saveProjects(ctx); err != nil {
		r.projects[name] = p
		return err
	}

	r.metrics.Mutation(collectionProjects, "delete")
	return nil
}

// ListProjects はすべてのプロジェクトのコピーを名前順に返します。
func (r *Repository) ListProjects(ctx context.Context) []*model.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projects := sortedValues(r.projects)
	for i, p := range projects {
		projects[i] = p.Clone()
	}
	return projects
}

// ProjectCount はプロジェクトの件数を返します。
func (r *Repository) ProjectCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}

// ClearProjects はすべてのプロジェクトを削除します。
func (r *Repository) ClearProjects(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.projects
	r.projects = make(map[string]*model.Project)
	if err := r.saveProjects(ctx); err != nil {
		r.projects = prev
		return err
	}

	r.metrics.Mutation(collectionProjects, "clear")
	return nil
}

// RecalculateProjects は materialName を参照するプロジェクトのうち、合計コストが古いものを
// 再計算して保存します。materialName が空の場合はすべてのプロジェクトが対象です。
// 再計算したプロジェクトの件数を返します。
func (r *Repository) RecalculateProjects(ctx context.Context, materialName string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if materialName != "" {
		if _, ok := r.materials[materialName]; !ok {
			return 0, fmt.Errorf("%w: %s", model.ErrMaterialNotFound, materialName)
		}
	}

	prev := make(map[string]model.Project)
	for name, p := range r.projects {
		if materialName != "" && p.MaterialName() != materialName {
			continue
		}
		if !p.IsStale() {
			continue
		}
		prev[name] = *p
		p.RecalculateCost()
	}
	if len(prev) == 0 {
		return 0, nil
	}

	if err := r.saveProjects(ctx); err != nil {
		for name, p := range prev {
			*r.projects[name] = p
		}
		return 0, err
	}

	r.metrics.Mutation(collectionProjects, "recalculate")
	return len(prev), nil
}

// Close はバックエンドを閉じます。
func (r *Repository) Close() error {
	return r.backend.Close()
}

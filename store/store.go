// Package store は、データの永続化機能を提供します。
package store

import (
	"context"
	"fmt"

	"github.com/stsysd/printledger/config"
	"github.com/stsysd/printledger/db"
	"github.com/stsysd/printledger/logger"
	"github.com/stsysd/printledger/metrics"
	"github.com/stsysd/printledger/model"
)

// Backend はマテリアルとプロジェクトの保存先を抽象化するインターフェースです。
// Save はコレクション全体を上書きします。
type Backend interface {
	// LoadMaterials は保存済みのマテリアルをすべて読み込みます。
	LoadMaterials(ctx context.Context) ([]*model.Material, error)
	// SaveMaterials はマテリアルの保存内容を置き換えます。
	SaveMaterials(ctx context.Context, materials []*model.Material) error
	// LoadProjects は保存済みのプロジェクトを未解決のレコードとして読み込みます。
	LoadProjects(ctx context.Context) ([]*model.ProjectRecord, error)
	// SaveProjects はプロジェクトの保存内容を置き換えます。
	SaveProjects(ctx context.Context, projects []*model.Project) error
	// Close は保存先を閉じます。
	Close() error
}

// MaterialStore はマテリアルの保存と取得を行うインターフェースです。
type MaterialStore interface {
	// AddMaterial は新しいマテリアルを追加します。
	AddMaterial(ctx context.Context, material *model.Material) error
	// GetMaterial は指定された名前のマテリアルを取得します。
	GetMaterial(ctx context.Context, name string) (*model.Material, error)
	// UpdateMaterialCost は新しい購入情報でマテリアルの単価を更新します。
	UpdateMaterialCost(ctx context.Context, name string, totalCost, totalVolume float64) error
	// DeleteMaterial は参照されていないマテリアルを削除します。
	DeleteMaterial(ctx context.Context, name string) error
	// ForceDeleteMaterial は参照の有無にかかわらずマテリアルを削除します。
	ForceDeleteMaterial(ctx context.Context, name string) error
	// ListMaterials はすべてのマテリアルを名前順に取得します。
	ListMaterials(ctx context.Context) []*model.Material
	// MaterialCount はマテリアルの件数を返します。
	MaterialCount() int
	// ClearMaterials はすべてのマテリアルを削除します。
	ClearMaterials(ctx context.Context) error
}

// ProjectStore はプロジェクトの保存と取得を行うインターフェースです。
type ProjectStore interface {
	// AddProject は新しいプロジェクトを追加します。
	AddProject(ctx context.Context, project *model.Project) error
	// GetProject は指定された名前のプロジェクトを取得します。
	GetProject(ctx context.Context, name string) (*model.Project, error)
	// UpdateProject は指定されたプロジェクトを置き換えます（名前の変更を含む）。
	UpdateProject(ctx context.Context, name string, replacement *model.Project) error
	// DeleteProject は指定された名前のプロジェクトを削除します。
	DeleteProject(ctx context.Context, name string) error
	// ListProjects はすべてのプロジェクトを名前順に取得します。
	ListProjects(ctx context.Context) []*model.Project
	// ProjectCount はプロジェクトの件数を返します。
	ProjectCount() int
	// ClearProjects はすべてのプロジェクトを削除します。
	ClearProjects(ctx context.Context) error
	// RecalculateProjects はマテリアルを参照するプロジェクトの合計コストを再計算します。
	RecalculateProjects(ctx context.Context, materialName string) (int, error)
}

// Store はマテリアルとプロジェクトの両方を扱うストアです。
type Store interface {
	MaterialStore
	ProjectStore
	// Close はストアを閉じます。
	Close() error
}

// NewBackend は設定に応じたバックエンドを生成します。
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.MaterialsPath(), cfg.ProjectsPath())
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.DataDir, db.Migrate)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// Open は設定に応じたバックエンドでリポジトリを開きます。
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Repository, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	repo, err := NewRepository(ctx, backend, log, m)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repo, nil
}

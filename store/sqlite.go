// Package store は、データの永続化機能を提供します。
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stsysd/printledger/model"
)

// SQLiteStore はSQLiteを使用したBackendの実装です。
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore は新しいSQLiteStoreを作成します。
func NewSQLiteStore(dataDir string, migrate func(*sql.DB) error) (*SQLiteStore, error) {
	// データディレクトリの作成（存在しない場合）
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// SQLiteデータベースファイルのパス
	dbPath := filepath.Join(dataDir, "printledger.sqlite")

	// SQLiteデータベースへの接続
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	// マイグレーションの実行
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// LoadMaterials はマテリアルテーブルを読み込みます。
func (s *SQLiteStore) LoadMaterials(ctx context.Context) ([]*model.Material, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT name, cost_per_gram, total_volume FROM materials ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}
	defer rows.Close()

	var materials []*model.Material
	row := 0
	for rows.Next() {
		row++
		var (
			name                     string
			costPerGram, totalVolume float64
		)
		if err := rows.Scan(&name, &costPerGram, &totalVolume); err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		m, err := model.LoadMaterial(name, costPerGram, totalVolume)
		if err != nil {
			return nil, &model.RecordError{Source: "materials", Line: row, Err: err}
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read materials: %w", err)
	}
	return materials, nil
}

// SaveMaterials はマテリアルテーブルの内容を置き換えます。
func (s *SQLiteStore) SaveMaterials(ctx context.Context, materials []*model.Material) error {
	return s.replaceAll(ctx, "materials",
		`INSERT INTO materials (name, cost_per_gram, total_volume) VALUES (?, ?, ?)`,
		len(materials), func(i int) []any {
			m := materials[i]
			return []any{m.Name(), m.CostPerGram(), m.TotalVolume()}
		})
}

// LoadProjects はプロジェクトテーブルを読み込みます。
func (s *SQLiteStore) LoadProjects(ctx context.Context) ([]*model.ProjectRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT name, design_time, print_time, material_used, material_name,
		       hourly_rate, print_rate, total_cost
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var records []*model.ProjectRecord
	for rows.Next() {
		var rec model.ProjectRecord
		if err := rows.Scan(
			&rec.Name, &rec.DesignTime, &rec.PrintTime, &rec.MaterialUsed, &rec.MaterialName,
			&rec.HourlyRate, &rec.PrintRate, &rec.TotalCost,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read projects: %w", err)
	}
	return records, nil
}

// SaveProjects はプロジェクトテーブルの内容を置き換えます。
func (s *SQLiteStore) SaveProjects(ctx context.Context, projects []*model.Project) error {
	return s.replaceAll(ctx, "projects", `
		INSERT INTO projects (name, design_time, print_time, material_used, material_name,
		                      hourly_rate, print_rate, total_cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		len(projects), func(i int) []any {
			rec := model.ProjectRecordOf(projects[i])
			return []any{
				rec.Name, rec.DesignTime, rec.PrintTime, rec.MaterialUsed, rec.MaterialName,
				rec.HourlyRate, rec.PrintRate, rec.TotalCost,
			}
		})
}

// replaceAll はトランザクション内でテーブルを空にしてから全行を挿入します。
func (s *SQLiteStore) replaceAll(ctx context.Context, table, insert string, n int, args func(i int) []any) error {
	// トランザクションの開始
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// トランザクションをロールバックするための遅延関数
	defer func() {
		if tx != nil {
			tx.Rollback() // 成功した場合は既にnilになっているためエラーは無視
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	// トランザクションのコミット
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil // コミットが成功したのでnilにして遅延関数でのロールバックを防ぐ

	return nil
}

// Close はデータベース接続を閉じます。
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

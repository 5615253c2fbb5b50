// Package store は、データの永続化機能を提供します。
package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/stsysd/printledger/model"
)

// FileStore は2つのパイプ区切りテキストファイルを使用したBackendの実装です。
type FileStore struct {
	materialsPath string
	projectsPath  string
}

// NewFileStore は新しいFileStoreを作成します。
func NewFileStore(materialsPath, projectsPath string) (*FileStore, error) {
	// データディレクトリの作成（存在しない場合）
	for _, path := range []string{materialsPath, projectsPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return &FileStore{
		materialsPath: materialsPath,
		projectsPath:  projectsPath,
	}, nil
}

// MaterialsPath はマテリアルファイルのパスを返します。
func (s *FileStore) MaterialsPath() string { return s.materialsPath }

// ProjectsPath はプロジェクトファイルのパスを返します。
func (s *FileStore) ProjectsPath() string { return s.projectsPath }

// LoadMaterials はマテリアルファイルを読み込みます。ファイルがなければ空を返します。
func (s *FileStore) LoadMaterials(ctx context.Context) ([]*model.Material, error) {
	var materials []*model.Material
	err := readRecords(s.materialsPath, func(line string) error {
		m, err := model.ParseMaterial(line)
		if err != nil {
			return err
		}
		materials = append(materials, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return materials, nil
}

// SaveMaterials はマテリアルファイルを1行1レコードで上書きします。
func (s *FileStore) SaveMaterials(ctx context.Context, materials []*model.Material) error {
	lines := make([]string, 0, len(materials))
	for _, m := range materials {
		lines = append(lines, m.Record())
	}
	return writeRecords(s.materialsPath, lines)
}

// LoadProjects はプロジェクトファイルを読み込みます。ファイルがなければ空を返します。
func (s *FileStore) LoadProjects(ctx context.Context) ([]*model.ProjectRecord, error) {
	var records []*model.ProjectRecord
	err := readRecords(s.projectsPath, func(line string) error {
		rec, err := model.ParseProjectRecord(line)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SaveProjects はプロジェクトファイルを1行1レコードで上書きします。
func (s *FileStore) SaveProjects(ctx context.Context, projects []*model.Project) error {
	lines := make([]string, 0, len(projects))
	for _, p := range projects {
		lines = append(lines, p.Record())
	}
	return writeRecords(s.projectsPath, lines)
}

// Close は何もしません。ファイルは操作ごとに開閉されます。
func (s *FileStore) Close() error {
	return nil
}

// readRecords は空行を除く各行に parse を適用します。
// 解析エラーは行番号付きの RecordError として返し、読み込みを中断します。
func readRecords(path string, parse func(line string) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	// 行の長さに上限を設けない
	reader := bufio.NewReader(f)
	lineNo := 0
	for {
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read %s: %w", path, readErr)
		}
		if raw == "" && readErr != nil {
			return nil
		}
		lineNo++
		line := strings.TrimRight(raw, "\r\n")
		if strings.TrimSpace(line) != "" {
			if err := parse(line); err != nil {
				return &model.RecordError{Source: filepath.Base(path), Line: lineNo, Err: err}
			}
		}
		if readErr != nil {
			return nil
		}
	}
}

// writeRecords は一時ファイルに書き込んだ後にリネームし、ファイルを原子的に置き換えます。
func writeRecords(path string, lines []string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	// リネーム成功後は存在しないため、削除エラーは無視
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

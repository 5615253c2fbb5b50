// Package config はアプリケーション設定を管理します。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 永続化バックエンドの種類
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config はアプリケーション全体の設定を保持します。
type Config struct {
	// データディレクトリのパス
	DataDir string

	// 永続化バックエンド（file または sqlite）
	Backend string

	// マテリアル・プロジェクトのファイル名（DataDir からの相対）
	MaterialsFile string
	ProjectsFile  string

	// HTTPサーバーのポート
	Port string

	// API認証キー
	APIKey string

	// ログ出力モード（dev または prod）
	LogMode string

	// プロジェクト作成時の単価の既定値
	Defaults RateDefaults
}

// RateDefaults は単価の既定値を表します。
type RateDefaults struct {
	HourlyRate float64 `yaml:"hourly_rate"`
	PrintRate  float64 `yaml:"print_rate"`
}

// LoadDotEnv はカレントディレクトリの .env を読み込みます。ファイルがなければ何もしません。
func LoadDotEnv() {
	_ = godotenv.Load()
}

// NewConfig は環境変数から設定を読み込み、Configインスタンスを生成します。
func NewConfig() (*Config, error) {
	cfg := &Config{
		DataDir:       getEnv("PRINTLEDGER_DATA_DIR", filepath.Join(".", "data")),
		Backend:       getEnv("PRINTLEDGER_BACKEND", BackendFile),
		MaterialsFile: getEnv("PRINTLEDGER_MATERIALS_FILE", "materials.db"),
		ProjectsFile:  getEnv("PRINTLEDGER_PROJECTS_FILE", "projects.db"),
		Port:          getEnv("PRINTLEDGER_SERVER_PORT", "8080"),
		APIKey:        os.Getenv("PRINTLEDGER_API_KEY"),
		LogMode:       getEnv("PRINTLEDGER_LOG_MODE", "dev"),
	}

	// 単価の既定値ファイル（任意）
	if path := os.Getenv("PRINTLEDGER_DEFAULTS_FILE"); path != "" {
		defaults, err := loadDefaults(path)
		if err != nil {
			return nil, err
		}
		cfg.Defaults = defaults
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値を検証します。
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q: must be %q or %q", c.Backend, BackendFile, BackendSQLite)
	}
	if c.DataDir == "" {
		return errors.New("data directory is required")
	}
	if c.Defaults.HourlyRate < 0 || c.Defaults.PrintRate < 0 {
		return errors.New("default rates must not be negative")
	}
	return nil
}

// RequireAPIKey はAPIサーバー起動時にAPIキーが設定されているかを確認します。
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return errors.New("PRINTLEDGER_API_KEY is not set")
	}
	return nil
}

// MaterialsPath はマテリアルファイルのパスを返します。
func (c *Config) MaterialsPath() string {
	return filepath.Join(c.DataDir, c.MaterialsFile)
}

// ProjectsPath はプロジェクトファイルのパスを返します。
func (c *Config) ProjectsPath() string {
	return filepath.Join(c.DataDir, c.ProjectsFile)
}

func loadDefaults(path string) (RateDefaults, error) {
	var defaults RateDefaults
	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("failed to read defaults file: %w", err)
	}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return defaults, fmt.Errorf("failed to parse defaults file: %w", err)
	}
	return defaults, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

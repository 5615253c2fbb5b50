// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"errors"
	"fmt"
)

// センチネルエラー - コレクション操作の失敗を表す
var (
	ErrMaterialNotFound = errors.New("material not found")
	ErrMaterialExists   = errors.New("material already exists")
	ErrMaterialInUse    = errors.New("material is referenced by projects")
	ErrProjectNotFound  = errors.New("project not found")
	ErrProjectExists    = errors.New("project already exists")
)

// ValidationError はバリデーションエラーを表す型
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError はValidationErrorを生成するヘルパー関数
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

func newValidationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation はエラーチェーンにValidationErrorが含まれるかを判定します。
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// RecordError は永続化ファイル中の不正なレコードを表します。
type RecordError struct {
	Source string // ファイル名またはテーブル名
	Line   int    // 1始まりの行番号
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

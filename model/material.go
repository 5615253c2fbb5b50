// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"encoding/json"
	"fmt"
)

// Material は3Dプリント用の材料（フィラメント・レジン）を表すモデルです。
type Material struct {
	name        string
	costPerGram float64
	totalVolume float64 // 購入量（グラム）
}

// NewMaterial は購入情報（総額と総量）から新しいMaterialを作成します。
// 1グラムあたりの単価は totalCost / totalVolume で算出されます。
func NewMaterial(name string, totalCost, totalVolume float64) (*Material, error) {
	if err := validateName("material", name); err != nil {
		return nil, err
	}
	costPerGram, err := calculateCostPerGram(totalCost, totalVolume)
	if err != nil {
		return nil, err
	}
	return &Material{
		name:        name,
		costPerGram: costPerGram,
		totalVolume: totalVolume,
	}, nil
}

// LoadMaterial は既知の単価から既存のMaterialインスタンスを作成します。
// 割り算は行いませんが、NewMaterialと同じ不変条件を検証します。
func LoadMaterial(name string, costPerGram, totalVolume float64) (*Material, error) {
	m := &Material{
		name:        name,
		costPerGram: costPerGram,
		totalVolume: totalVolume,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// calculateCostPerGram は総額と総量から単価を算出します。
func calculateCostPerGram(totalCost, totalVolume float64) (float64, error) {
	if err := checkFinite("total cost", totalCost); err != nil {
		return 0, err
	}
	if err := checkFinite("total volume", totalVolume); err != nil {
		return 0, err
	}
	if totalVolume <= 0 {
		return 0, NewValidationError("total volume must be greater than 0")
	}
	if totalCost < 0 {
		return 0, NewValidationError("total cost must not be negative")
	}
	return totalCost / totalVolume, nil
}

// Validate はマテリアルのデータバリデーションを行います。
func (m *Material) Validate() error {
	if err := validateName("material", m.name); err != nil {
		return err
	}
	if err := checkFinite("cost per gram", m.costPerGram); err != nil {
		return err
	}
	if err := checkFinite("total volume", m.totalVolume); err != nil {
		return err
	}
	if m.costPerGram < 0 {
		return NewValidationError("cost per gram must not be negative")
	}
	if m.totalVolume <= 0 {
		return NewValidationError("total volume must be greater than 0")
	}
	return nil
}

// Name はマテリアル名を返します。
func (m *Material) Name() string { return m.name }

// CostPerGram は1グラムあたりの単価を返します。
func (m *Material) CostPerGram() float64 { return m.costPerGram }

// TotalVolume は購入量（グラム）を返します。
func (m *Material) TotalVolume() float64 { return m.totalVolume }

// UpdateCost は新しい購入情報で単価と購入量を置き換えます。
// 検証に失敗した場合、マテリアルは変更されません。
func (m *Material) UpdateCost(newTotalCost, newTotalVolume float64) error {
	costPerGram, err := calculateCostPerGram(newTotalCost, newTotalVolume)
	if err != nil {
		return err
	}
	m.costPerGram = costPerGram
	m.totalVolume = newTotalVolume
	return nil
}

// Clone はマテリアルのコピーを返します。
func (m *Material) Clone() *Material {
	c := *m
	return &c
}

// Record はマテリアルを永続化用のレコード name|costPerGram|totalVolume に変換します。
func (m *Material) Record() string {
	return m.name + fieldSeparator +
		formatFixed(m.costPerGram, 4) + fieldSeparator +
		formatFixed(m.totalVolume, 2)
}

// ParseMaterial はレコードからMaterialを復元します。
func ParseMaterial(line string) (*Material, error) {
	fields, err := splitRecord(line, materialFieldCount)
	if err != nil {
		return nil, err
	}
	costPerGram, err := parseNumber("cost per gram", fields[1])
	if err != nil {
		return nil, err
	}
	totalVolume, err := parseNumber("total volume", fields[2])
	if err != nil {
		return nil, err
	}
	return LoadMaterial(fields[0], costPerGram, totalVolume)
}

// String は表示用の文字列を返します。
func (m *Material) String() string {
	return fmt.Sprintf("Material: %s | Cost per gram: $%.4f | Total volume: %.2fg",
		m.name, m.costPerGram, m.totalVolume)
}

type materialJSON struct {
	Name        string  `json:"name"`
	CostPerGram float64 `json:"cost_per_gram"`
	TotalVolume float64 `json:"total_volume"`
}

// MarshalJSON はマテリアルをJSONに変換します。
func (m *Material) MarshalJSON() ([]byte, error) {
	return json.Marshal(materialJSON{
		Name:        m.name,
		CostPerGram: m.costPerGram,
		TotalVolume: m.totalVolume,
	})
}

// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Project は3Dプリントの案件とそのコスト計算を表すモデルです。
//
// material は共有参照です。マテリアルの単価が変わると各コスト項目は即座に
// 新しい単価で計算されますが、totalCost はキャッシュされた値のため
// RecalculateCost を呼ぶまで更新されません（IsStale で検出できます）。
type Project struct {
	name         string
	designTime   float64   // 設計時間（時間）
	printTime    float64   // 印刷時間（時間）
	materialUsed float64   // 材料使用量（グラム）
	material     *Material // 使用材料
	hourlyRate   float64   // 設計の時間単価
	printRate    float64   // プリンタ稼働の時間単価
	totalCost    float64   // 算出済みの合計コスト
}

// CostBreakdown はプロジェクトのコスト内訳です。
type CostBreakdown struct {
	Design   float64 `json:"design_cost"`
	Print    float64 `json:"print_cost"`
	Material float64 `json:"material_cost"`
	Total    float64 `json:"total_cost"`
}

// NewProject は新しいProjectインスタンスを作成し、合計コストを算出します。
// 負の値の検証は呼び出し側の責務です。
func NewProject(name string, designTime, printTime, materialUsed float64, material *Material, hourlyRate, printRate float64) (*Project, error) {
	p := &Project{
		name:         name,
		designTime:   designTime,
		printTime:    printTime,
		materialUsed: materialUsed,
		material:     material,
		hourlyRate:   hourlyRate,
		printRate:    printRate,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.RecalculateCost()
	return p, nil
}

// Validate はプロジェクトのデータバリデーションを行います。
func (p *Project) Validate() error {
	if err := validateName("project", p.name); err != nil {
		return err
	}
	if p.material == nil {
		return NewValidationError("material is required")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"design time", p.designTime},
		{"print time", p.printTime},
		{"material used", p.materialUsed},
		{"hourly rate", p.hourlyRate},
		{"print rate", p.printRate},
	} {
		if err := checkFinite(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// Name はプロジェクト名を返します。
func (p *Project) Name() string { return p.name }

func (p *Project) DesignTime() float64   { return p.designTime }
func (p *Project) PrintTime() float64    { return p.printTime }
func (p *Project) MaterialUsed() float64 { return p.materialUsed }
func (p *Project) HourlyRate() float64   { return p.hourlyRate }
func (p *Project) PrintRate() float64    { return p.printRate }

// Material は参照中のマテリアルを返します。
func (p *Project) Material() *Material { return p.material }

// MaterialName は参照中のマテリアル名を返します。
func (p *Project) MaterialName() string { return p.material.Name() }

// TotalCost はキャッシュされた合計コストを返します。
func (p *Project) TotalCost() float64 { return p.totalCost }

// SetName はプロジェクト名を変更します。
func (p *Project) SetName(name string) error {
	if err := validateName("project", name); err != nil {
		return err
	}
	p.name = name
	return nil
}

// SetDesignTime は設計時間を変更し、合計コストを再計算します。
func (p *Project) SetDesignTime(hours float64) {
	p.designTime = hours
	p.RecalculateCost()
}

// SetPrintTime は印刷時間を変更し、合計コストを再計算します。
func (p *Project) SetPrintTime(hours float64) {
	p.printTime = hours
	p.RecalculateCost()
}

// SetMaterialUsed は材料使用量を変更し、合計コストを再計算します。
func (p *Project) SetMaterialUsed(grams float64) {
	p.materialUsed = grams
	p.RecalculateCost()
}

// SetMaterial は参照するマテリアルを差し替えます。合計コストは再計算しません。
func (p *Project) SetMaterial(material *Material) error {
	if material == nil {
		return NewValidationError("material is required")
	}
	p.material = material
	return nil
}

// SetRates は時間単価を変更します。合計コストは再計算しません。
func (p *Project) SetRates(hourlyRate, printRate float64) {
	p.hourlyRate = hourlyRate
	p.printRate = printRate
}

// DesignCost は設計コスト（設計時間 × 時間単価）を返します。
func (p *Project) DesignCost() float64 {
	return p.designTime * p.hourlyRate
}

// PrintCost はプリンタ稼働コスト（印刷時間 × 稼働単価）を返します。
func (p *Project) PrintCost() float64 {
	return p.printTime * p.printRate
}

// MaterialCost は材料コスト（使用量 × 現在のグラム単価）を返します。
func (p *Project) MaterialCost() float64 {
	return p.materialUsed * p.material.CostPerGram()
}

func (p *Project) computeTotal() float64 {
	return p.DesignCost() + p.PrintCost() + p.MaterialCost()
}

// RecalculateCost は合計コストを再計算して返します。
func (p *Project) RecalculateCost() float64 {
	p.totalCost = p.computeTotal()
	return p.totalCost
}

// IsStale はキャッシュされた合計コストが現在の計算結果と異なるかを返します。
// 合計は保存時にセント単位へ丸められるため、比較もセント単位で行います。
func (p *Project) IsStale() bool {
	return cents(p.totalCost) != cents(p.computeTotal())
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// Breakdown はコスト内訳を返します。Total はキャッシュ値です。
func (p *Project) Breakdown() CostBreakdown {
	return CostBreakdown{
		Design:   p.DesignCost(),
		Print:    p.PrintCost(),
		Material: p.MaterialCost(),
		Total:    p.totalCost,
	}
}

// Clone はマテリアルも含めたプロジェクトのコピーを返します。
func (p *Project) Clone() *Project {
	c := *p
	if p.material != nil {
		c.material = p.material.Clone()
	}
	return &c
}

// Record はプロジェクトを永続化用のレコードに変換します。
func (p *Project) Record() string {
	return strings.Join([]string{
		p.name,
		formatFixed(p.designTime, 2),
		formatFixed(p.printTime, 2),
		formatFixed(p.materialUsed, 2),
		p.material.Name(),
		formatFixed(p.hourlyRate, 2),
		formatFixed(p.printRate, 2),
		formatFixed(p.totalCost, 2),
	}, fieldSeparator)
}

// String はコスト内訳を含む詳細表示を返します。
func (p *Project) String() string {
	var sb strings.Builder
	sb.WriteString("=====================================\n")
	sb.WriteString("PROJECT: " + p.name + "\n")
	sb.WriteString("=====================================\n")
	fmt.Fprintf(&sb, "Design Time: %.2f hours @ $%.2f/hr = $%.2f\n",
		p.designTime, p.hourlyRate, p.DesignCost())
	fmt.Fprintf(&sb, "Print Time: %.2f hours @ $%.2f/hr = $%.2f\n",
		p.printTime, p.printRate, p.PrintCost())
	fmt.Fprintf(&sb, "Material: %.2fg of %s @ $%.4f/g = $%.2f\n",
		p.materialUsed, p.material.Name(), p.material.CostPerGram(), p.MaterialCost())
	sb.WriteString("-------------------------------------\n")
	fmt.Fprintf(&sb, "TOTAL COST: $%.2f\n", p.totalCost)
	sb.WriteString("=====================================")
	return sb.String()
}

// Summary は "name: $cost" 形式の1行表示を返します。
func (p *Project) Summary() string {
	return fmt.Sprintf("%s: $%.2f", p.name, p.totalCost)
}

type projectJSON struct {
	Name         string  `json:"name"`
	DesignTime   float64 `json:"design_time"`
	PrintTime    float64 `json:"print_time"`
	MaterialUsed float64 `json:"material_used"`
	Material     string  `json:"material"`
	HourlyRate   float64 `json:"hourly_rate"`
	PrintRate    float64 `json:"print_rate"`
	CostBreakdown
	Stale bool `json:"stale"`
}

// MarshalJSON はプロジェクトをコスト内訳付きのJSONに変換します。
func (p *Project) MarshalJSON() ([]byte, error) {
	return json.Marshal(projectJSON{
		Name:          p.name,
		DesignTime:    p.designTime,
		PrintTime:     p.printTime,
		MaterialUsed:  p.materialUsed,
		Material:      p.material.Name(),
		HourlyRate:    p.hourlyRate,
		PrintRate:     p.printRate,
		CostBreakdown: p.Breakdown(),
		Stale:         p.IsStale(),
	})
}

// ProjectRecord はマテリアル参照が未解決のプロジェクトレコードです。
type ProjectRecord struct {
	Name         string
	DesignTime   float64
	PrintTime    float64
	MaterialUsed float64
	MaterialName string
	HourlyRate   float64
	PrintRate    float64
	TotalCost    float64 // 保存時の合計。復元後もキャッシュ値として保持される
}

// ParseProjectRecord はレコードを解析します。マテリアルの解決は行いません。
func ParseProjectRecord(line string) (*ProjectRecord, error) {
	fields, err := splitRecord(line, projectFieldCount)
	if err != nil {
		return nil, err
	}
	rec := &ProjectRecord{
		Name:         fields[0],
		MaterialName: fields[4],
	}
	numbers := []struct {
		field string
		raw   string
		dst   *float64
	}{
		{"design time", fields[1], &rec.DesignTime},
		{"print time", fields[2], &rec.PrintTime},
		{"material used", fields[3], &rec.MaterialUsed},
		{"hourly rate", fields[5], &rec.HourlyRate},
		{"print rate", fields[6], &rec.PrintRate},
		{"total cost", fields[7], &rec.TotalCost},
	}
	for _, n := range numbers {
		v, err := parseNumber(n.field, n.raw)
		if err != nil {
			return nil, err
		}
		*n.dst = v
	}
	return rec, nil
}

// Resolve は解決済みのマテリアルを使ってProjectを復元します。
// 合計コストは再計算せず、保存された値をそのまま使います。単価は4桁で保存されるため、
// 再計算した結果と食い違う場合は IsStale で検出できます。
// マテリアル名とレコードの照合は呼び出し側の責務です。
func (r *ProjectRecord) Resolve(material *Material) (*Project, error) {
	p, err := NewProject(r.Name, r.DesignTime, r.PrintTime, r.MaterialUsed, material, r.HourlyRate, r.PrintRate)
	if err != nil {
		return nil, err
	}
	if err := checkFinite("total cost", r.TotalCost); err != nil {
		return nil, err
	}
	p.totalCost = r.TotalCost
	return p, nil
}

// ParseProject はレコードと解決済みのマテリアルからProjectを復元します。
func ParseProject(line string, material *Material) (*Project, error) {
	rec, err := ParseProjectRecord(line)
	if err != nil {
		return nil, err
	}
	return rec.Resolve(material)
}

// ProjectRecordOf はプロジェクトを永続化用のレコード値に変換します。
func ProjectRecordOf(p *Project) *ProjectRecord {
	return &ProjectRecord{
		Name:         p.name,
		DesignTime:   p.designTime,
		PrintTime:    p.printTime,
		MaterialUsed: p.materialUsed,
		MaterialName: p.material.Name(),
		HourlyRate:   p.hourlyRate,
		PrintRate:    p.printRate,
		TotalCost:    p.totalCost,
	}
}

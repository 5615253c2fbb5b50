// Package api はprintledgerのAPIサーバー実装を提供します。
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stsysd/printledger/config"
	"github.com/stsysd/printledger/model"
)

// decodeBody はリクエストボディをJSONとして読み込みます。
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// CreateMaterialParams represents parameters for creating a material.
type CreateMaterialParams struct {
	Name        *model.EntityName
	TotalCost   float64
	TotalVolume float64
}

// NewCreateMaterialParams creates parameters for material creation from HTTP request.
func NewCreateMaterialParams(r *http.Request) (*CreateMaterialParams, error) {
	var body struct {
		Name        string   `json:"name"`
		TotalCost   *float64 `json:"total_cost"`
		TotalVolume *float64 `json:"total_volume"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}

	err := validation.ValidateStruct(&body,
		validation.Field(&body.Name, validation.Required),
		validation.Field(&body.TotalCost, validation.NotNil, validation.Min(0.0)),
		validation.Field(&body.TotalVolume, validation.NotNil, validation.Min(0.0).Exclusive()),
	)
	if err != nil {
		return nil, err
	}

	name, err := model.NewEntityName(body.Name)
	if err != nil {
		return nil, err
	}

	return &CreateMaterialParams{
		Name:        name,
		TotalCost:   *body.TotalCost,
		TotalVolume: *body.TotalVolume,
	}, nil
}

// UpdateMaterialCostParams represents parameters for replacing a material's purchase.
type UpdateMaterialCostParams struct {
	Name        string
	TotalCost   float64
	TotalVolume float64
	Recalculate *model.Flag
}

// NewUpdateMaterialCostParams creates parameters for material cost update from HTTP request.
func NewUpdateMaterialCostParams(r *http.Request) (*UpdateMaterialCostParams, error) {
	recalculate, err := model.NewFlag(r.URL.Query().Get("recalculate"))
	if err != nil {
		return nil, fmt.Errorf("invalid recalculate: %w", err)
	}

	var body struct {
		TotalCost   *float64 `json:"total_cost"`
		TotalVolume *float64 `json:"total_volume"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}

	err = validation.ValidateStruct(&body,
		validation.Field(&body.TotalCost, validation.NotNil, validation.Min(0.0)),
		validation.Field(&body.TotalVolume, validation.NotNil, validation.Min(0.0).Exclusive()),
	)
	if err != nil {
		return nil, err
	}

	return &UpdateMaterialCostParams{
		Name:        r.PathValue("name"),
		TotalCost:   *body.TotalCost,
		TotalVolume: *body.TotalVolume,
		Recalculate: recalculate,
	}, nil
}

// DeleteMaterialParams represents parameters for deleting a material.
type DeleteMaterialParams struct {
	Name  string
	Force *model.Flag
}

// NewDeleteMaterialParams creates parameters for material deletion from HTTP request.
func NewDeleteMaterialParams(r *http.Request) (*DeleteMaterialParams, error) {
	force, err := model.NewFlag(r.URL.Query().Get("force"))
	if err != nil {
		return nil, fmt.Errorf("invalid force: %w", err)
	}
	return &DeleteMaterialParams{
		Name:  r.PathValue("name"),
		Force: force,
	}, nil
}

// projectBody はプロジェクト作成・更新のリクエストボディです。
type projectBody struct {
	Name         *string  `json:"name"`
	DesignTime   *float64 `json:"design_time"`
	PrintTime    *float64 `json:"print_time"`
	MaterialUsed *float64 `json:"material_used"`
	Material     *string  `json:"material"`
	HourlyRate   *float64 `json:"hourly_rate"`
	PrintRate    *float64 `json:"print_rate"`
}

func (b *projectBody) validate(create bool) error {
	var required []validation.Rule
	if create {
		required = []validation.Rule{validation.NotNil}
	}
	return validation.ValidateStruct(b,
		validation.Field(&b.Name, append(required, validation.NilOrNotEmpty)...),
		validation.Field(&b.DesignTime, append(required, validation.Min(0.0))...),
		validation.Field(&b.PrintTime, append(required, validation.Min(0.0))...),
		validation.Field(&b.MaterialUsed, append(required, validation.Min(0.0))...),
		validation.Field(&b.Material, append(required, validation.NilOrNotEmpty)...),
		validation.Field(&b.HourlyRate, validation.Min(0.0)),
		validation.Field(&b.PrintRate, validation.Min(0.0)),
	)
}

// ProjectParams represents the resolved field values of a project.
type ProjectParams struct {
	Name         string
	DesignTime   float64
	PrintTime    float64
	MaterialUsed float64
	Material     string
	HourlyRate   float64
	PrintRate    float64
}

// NewCreateProjectParams creates parameters for project creation from HTTP request.
// Omitted rates fall back to the configured defaults.
func NewCreateProjectParams(r *http.Request, defaults config.RateDefaults) (*ProjectParams, error) {
	var body projectBody
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if err := body.validate(true); err != nil {
		return nil, err
	}

	hourlyRate, err := model.NewRate(body.HourlyRate, defaults.HourlyRate)
	if err != nil {
		return nil, fmt.Errorf("invalid hourly_rate: %w", err)
	}
	printRate, err := model.NewRate(body.PrintRate, defaults.PrintRate)
	if err != nil {
		return nil, fmt.Errorf("invalid print_rate: %w", err)
	}

	return &ProjectParams{
		Name:         *body.Name,
		DesignTime:   *body.DesignTime,
		PrintTime:    *body.PrintTime,
		MaterialUsed: *body.MaterialUsed,
		Material:     *body.Material,
		HourlyRate:   hourlyRate.Float(),
		PrintRate:    printRate.Float(),
	}, nil
}

// UpdateProjectParams represents parameters for updating a project.
// Nil fields keep the existing value.
type UpdateProjectParams struct {
	Name string
	body projectBody
}

// NewUpdateProjectParams creates parameters for project update from HTTP request.
func NewUpdateProjectParams(r *http.Request) (*UpdateProjectParams, error) {
	var body projectBody
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if err := body.validate(false); err != nil {
		return nil, err
	}
	return &UpdateProjectParams{
		Name: r.PathValue("name"),
		body: body,
	}, nil
}

// Apply は既存のプロジェクトに変更を適用した値を返します。
func (p *UpdateProjectParams) Apply(existing *model.Project) *ProjectParams {
	merged := &ProjectParams{
		Name:         existing.Name(),
		DesignTime:   existing.DesignTime(),
		PrintTime:    existing.PrintTime(),
		MaterialUsed: existing.MaterialUsed(),
		Material:     existing.MaterialName(),
		HourlyRate:   existing.HourlyRate(),
		PrintRate:    existing.PrintRate(),
	}
	b := p.body
	if b.Name != nil {
		merged.Name = *b.Name
	}
	if b.DesignTime != nil {
		merged.DesignTime = *b.DesignTime
	}
	if b.PrintTime != nil {
		merged.PrintTime = *b.PrintTime
	}
	if b.MaterialUsed != nil {
		merged.MaterialUsed = *b.MaterialUsed
	}
	if b.Material != nil {
		merged.Material = *b.Material
	}
	if b.HourlyRate != nil {
		merged.HourlyRate = *b.HourlyRate
	}
	if b.PrintRate != nil {
		merged.PrintRate = *b.PrintRate
	}
	return merged
}

// Package api はprintledgerのAPIサーバー実装を提供します。
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/stsysd/printledger/chart"
	"github.com/stsysd/printledger/config"
	"github.com/stsysd/printledger/logger"
	"github.com/stsysd/printledger/metrics"
	"github.com/stsysd/printledger/model"
	"github.com/stsysd/printledger/store"
)

// Server はAPIサーバーの構造体です。
type Server struct {
	router  *http.ServeMux
	handler http.Handler
	store   store.Store
	config  *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

// ErrorResponse はエラーレスポンスの構造体です。
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// writeJSONError はJSON形式でエラーレスポンスを返却します。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := ErrorResponse{
		Error: message,
		Code:  statusCode,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON はJSON形式でレスポンスを返却します。
func (s *Server) writeJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("error encoding response", "error", err)
	}
}

// writeStoreError はストアのエラーを対応するステータスコードに変換して返却します。
func (s *Server) writeStoreError(w http.ResponseWriter, err error, action string) {
	switch {
	case model.IsValidation(err):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrMaterialNotFound), errors.Is(err, model.ErrProjectNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrMaterialExists), errors.Is(err, model.ErrProjectExists),
		errors.Is(err, model.ErrMaterialInUse):
		writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		s.log.Error("store operation failed", "action", action, "error", err)
		writeJSONError(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

// NewServer は新しいAPIサーバーインスタンスを生成します。
func NewServer(st store.Store, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		router:  http.NewServeMux(),
		store:   st,
		config:  cfg,
		log:     log,
		metrics: m,
	}
	s.routes()
	s.handler = s.requestIDMiddleware(s.accessLogMiddleware(s.router))
	return s
}

// routes はAPIエンドポイントのルーティングを設定します。
func (s *Server) routes() {
	// ヘルスチェックとメトリクスは認証不要
	s.router.HandleFunc("GET /healthz", s.handleHealthCheck)
	s.router.Handle("GET /metrics", s.metrics.Handler())

	securedHandler := http.NewServeMux()

	// Material endpoints
	securedHandler.HandleFunc("GET /api/v0/m", s.handleListMaterials)
	securedHandler.HandleFunc("POST /api/v0/m", s.handleCreateMaterial)
	securedHandler.HandleFunc("GET /api/v0/m/{name}", s.handleGetMaterial)
	securedHandler.HandleFunc("DELETE /api/v0/m/{name}", s.handleDeleteMaterial)
	securedHandler.HandleFunc("PUT /api/v0/m/{name}/cost", s.handleUpdateMaterialCost)

	// Project endpoints
	securedHandler.HandleFunc("GET /api/v0/p", s.handleListProjects)
	securedHandler.HandleFunc("POST /api/v0/p", s.handleCreateProject)
	securedHandler.HandleFunc("POST /api/v0/p/recalc", s.handleRecalculateProjects)
	securedHandler.HandleFunc("GET /api/v0/p/{name}", s.handleGetProject)
	securedHandler.HandleFunc("PUT /api/v0/p/{name}", s.handleUpdateProject)
	securedHandler.HandleFunc("DELETE /api/v0/p/{name}", s.handleDeleteProject)

	// 認証ミドルウェアを適用し、メインルータにマウント
	s.router.Handle("/api/", s.authMiddleware(securedHandler))

	// Graph endpoints
	s.router.HandleFunc("GET /graph.svg", s.handleGetGraph)
	s.router.HandleFunc("GET /p/{name}/graph.svg", s.handleGetGraph)
}

// ServeHTTP はServer構造体をhttp.Handlerとして実装します。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealthCheck はヘルスチェックエンドポイントのハンドラーです。
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// ==================== マテリアル ====================

// handleListMaterials はマテリアル一覧を名前順に返すハンドラーです。
func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	materials := s.store.ListMaterials(r.Context())
	s.writeJSON(w, materials, http.StatusOK)
}

// handleCreateMaterial はマテリアル作成エンドポイントのハンドラーです。
func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	// パラメータを検証
	params, err := NewCreateMaterialParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	material, err := model.NewMaterial(params.Name.String(), params.TotalCost, params.TotalVolume)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.AddMaterial(r.Context(), material); err != nil {
		s.writeStoreError(w, err, "create material")
		return
	}

	s.writeJSON(w, material, http.StatusCreated)
}

// handleGetMaterial は指定されたマテリアルを返すハンドラーです。
func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	material, err := s.store.GetMaterial(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeStoreError(w, err, "retrieve material")
		return
	}
	s.writeJSON(w, material, http.StatusOK)
}

// handleUpdateMaterialCost はマテリアルの購入情報を置き換えるハンドラーです。
// recalculate=true の場合、参照しているプロジェクトの合計コストも再計算します。
func (s *Server) handleUpdateMaterialCost(w http.ResponseWriter, r *http.Request) {
	params, err := NewUpdateMaterialCostParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.UpdateMaterialCost(r.Context(), params.Name, params.TotalCost, params.TotalVolume); err != nil {
		s.writeStoreError(w, err, "update material")
		return
	}

	recalculated := 0
	if params.Recalculate.Bool() {
		recalculated, err = s.store.RecalculateProjects(r.Context(), params.Name)
		if err != nil {
			s.writeStoreError(w, err, "recalculate projects")
			return
		}
	}

	material, err := s.store.GetMaterial(r.Context(), params.Name)
	if err != nil {
		s.writeStoreError(w, err, "retrieve material")
		return
	}

	s.writeJSON(w, struct {
		Material     *model.Material `json:"material"`
		Recalculated int             `json:"recalculated"`
	}{material, recalculated}, http.StatusOK)
}

// handleDeleteMaterial はマテリアル削除エンドポイントのハンドラーです。
func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	params, err := NewDeleteMaterialParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if params.Force.Bool() {
		err = s.store.ForceDeleteMaterial(r.Context(), params.Name)
	} else {
		err = s.store.DeleteMaterial(r.Context(), params.Name)
	}
	if err != nil {
		s.writeStoreError(w, err, "delete material")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ==================== プロジェクト ====================

// handleListProjects はプロジェクト一覧と合計金額を返すハンドラーです。
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects := s.store.ListProjects(r.Context())

	total := 0.0
	for _, p := range projects {
		total += p.TotalCost()
	}

	s.writeJSON(w, struct {
		Projects  []*model.Project `json:"projects"`
		TotalCost float64          `json:"total_cost"`
	}{projects, total}, http.StatusOK)
}

// newProject はパラメータとストア内のマテリアルからプロジェクトを組み立てます。
func (s *Server) newProject(ctx context.Context, params *ProjectParams) (*model.Project, error) {
	material, err := s.store.GetMaterial(ctx, params.Material)
	if err != nil {
		return nil, err
	}
	return model.NewProject(params.Name, params.DesignTime, params.PrintTime, params.MaterialUsed,
		material, params.HourlyRate, params.PrintRate)
}

// handleCreateProject はプロジェクト作成エンドポイントのハンドラーです。
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	params, err := NewCreateProjectParams(r, s.config.Defaults)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	project, err := s.newProject(r.Context(), params)
	if err != nil {
		s.writeStoreError(w, err, "create project")
		return
	}

	if err := s.store.AddProject(r.Context(), project); err != nil {
		s.writeStoreError(w, err, "create project")
		return
	}

	s.writeJSON(w, project, http.StatusCreated)
}

// handleGetProject は指定されたプロジェクトをコスト内訳付きで返すハンドラーです。
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.store.GetProject(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeStoreError(w, err, "retrieve project")
		return
	}
	s.writeJSON(w, project, http.StatusOK)
}

// handleUpdateProject はプロジェクトを部分更新するハンドラーです。名前の変更も受け付けます。
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	params, err := NewUpdateProjectParams(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 更新前にプロジェクトが存在するか確認
	existing, err := s.store.GetProject(r.Context(), params.Name)
	if err != nil {
		s.writeStoreError(w, err, "retrieve project")
		return
	}

	updated, err := s.newProject(r.Context(), params.Apply(existing))
	if err != nil {
		s.writeStoreError(w, err, "update project")
		return
	}

	if err := s.store.UpdateProject(r.Context(), params.Name, updated); err != nil {
		s.writeStoreError(w, err, "update project")
		return
	}

	s.writeJSON(w, updated, http.StatusOK)
}

// handleDeleteProject はプロジェクト削除エンドポイントのハンドラーです。
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProject(r.Context(), r.PathValue("name")); err != nil {
		s.writeStoreError(w, err, "delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecalculateProjects は合計コストが古いプロジェクトを再計算するハンドラーです。
// material を指定した場合はそのマテリアルを参照するプロジェクトのみが対象です。
func (s *Server) handleRecalculateProjects(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.RecalculateProjects(r.Context(), r.URL.Query().Get("material"))
	if err != nil {
		s.writeStoreError(w, err, "recalculate projects")
		return
	}
	s.writeJSON(w, map[string]int{"recalculated": n}, http.StatusOK)
}

// ==================== グラフ ====================

// handleGetGraph はプロジェクトのコスト内訳グラフを返すハンドラーです。
// 名前が指定されない場合はすべてのプロジェクトを対象にします。
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	var projects []*model.Project
	title := "All projects"
	if name := r.PathValue("name"); name != "" {
		project, err := s.store.GetProject(r.Context(), name)
		if err != nil {
			if errors.Is(err, model.ErrProjectNotFound) {
				http.Error(w, "Project not found", http.StatusNotFound)
			} else {
				s.log.Error("error getting project", "project", name, "error", err)
				http.Error(w, "Failed to retrieve project", http.StatusInternalServerError)
			}
			return
		}
		projects = []*model.Project{project}
		title = project.Name()
	} else {
		projects = s.store.ListProjects(r.Context())
	}

	data := make([]chart.Data, 0, len(projects))
	for _, p := range projects {
		b := p.Breakdown()
		data = append(data, chart.Data{
			Label:    p.Name(),
			Design:   b.Design,
			Print:    b.Print,
			Material: b.Material,
		})
	}

	opts := chart.DefaultOptions()
	opts.Title = title
	svg := chart.GenerateCostBreakdownSVG(data, opts)
	if svg == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(svg))
}

// Run はサーバーを指定されたアドレスで起動し、ctx が終了するとグレースフルに停止します。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

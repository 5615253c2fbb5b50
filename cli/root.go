// Package cli はprintledgerのコマンドラインインターフェースを提供します。
package cli

import (
	"github.com/spf13/cobra"
	"github.com/stsysd/printledger/config"
	"github.com/stsysd/printledger/logger"
	"github.com/stsysd/printledger/metrics"
	"github.com/stsysd/printledger/store"
)

// app はコマンド実行中に共有される依存関係です。
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	store   store.Store

	dataDir string
	backend string
}

// newRootCommand はルートコマンドを生成します。
// ストアは PersistentPreRunE で開かれ、run が閉じます。
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "printledger",
		Short:         "Track 3D printing material costs and project pricing",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (overrides PRINTLEDGER_DATA_DIR)")
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "storage backend: file or sqlite (overrides PRINTLEDGER_BACKEND)")

	root.AddCommand(
		newMaterialCommand(a),
		newProjectCommand(a),
		newServeCommand(a),
	)
	return root
}

// open は設定を読み込み、ロガーとストアを初期化します。
func (a *app) open(cmd *cobra.Command) error {
	config.LoadDotEnv()

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.backend != "" {
		cfg.Backend = a.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	a.log = log
	a.metrics = metrics.New()

	st, err := store.Open(cmd.Context(), cfg, a.log, a.metrics)
	if err != nil {
		return err
	}
	a.store = st
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		a.log.Sync()
	}
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// run はコマンドを実行し、成否にかかわらずストアを閉じます。
func (a *app) run(cmd *cobra.Command) error {
	err := cmd.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// Execute はルートコマンドを実行します。
func Execute() error {
	a := &app{}
	return a.run(newRootCommand(a))
}

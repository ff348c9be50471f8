package cli

import (
	"storefront/internal/config"
	"storefront/internal/infra/db"
	"storefront/internal/infra/messaging"
	"storefront/internal/logger"
	"storefront/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// storectl: サーバーを介さない運用コマンド
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "storectl",
		Short:         "Storefront maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newCreateAdminCmd())
	cmd.AddCommand(newImportProductsCmd())
	cmd.AddCommand(newExportOrdersCmd())
	return cmd
}

func Execute() error {
	return newRootCmd().Execute()
}

// 各コマンド共通。設定読み込みとDB接続。
type env struct {
	cfg config.Config
	log *zap.Logger
	db  *gorm.DB
}

func setup() (*env, error) {
	config.LoadDotEnv(".env", "../.env")
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		return nil, err
	}
	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: gormDB}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.log.Sync()
}

// CLIではイベントは送らずログに出すだけ
func (e *env) runtime() usecase.Runtime {
	return usecase.Runtime{
		IDs:     usecase.UUIDGenerator{},
		Clock:   usecase.SystemClock{},
		Log:     e.log,
		Metrics: usecase.NopMetrics{},
		Events:  messaging.NewLogPublisher(e.log),
	}
}

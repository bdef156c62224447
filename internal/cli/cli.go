package cli

import (
	"fmt"
	"os"

	"github.com/godprim3/intelligent-email-assistant/internal/api/middleware"
	"github.com/godprim3/intelligent-email-assistant/internal/config"
	"github.com/godprim3/intelligent-email-assistant/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
	prefsStore    *services.PreferencesStore
	logService    *services.LogService
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "email-assistant",
	Short: "智能邮件助理后端服务",
	Long: `智能邮件助理是一个自动分析、回复并提醒重要邮件的后端服务。

该命令行工具提供以下功能：
  - 密钥管理：查看和重置 API 密钥
  - 偏好管理：查看和修改账户偏好设置
  - 失败恢复：重新分析处理失败的邮件

使用示例：
  email-assistant key show               # 显示当前 API 密钥
  email-assistant key reset              # 重置 API 密钥
  email-assistant prefs show <账户>      # 显示账户偏好
  email-assistant prefs set <账户>       # 修改账户偏好
  email-assistant reprocess <账户>       # 重新分析失败的邮件`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: 无法初始化 API 密钥管理器: %v\n", err)
		os.Exit(1)
	}

	prefsStore = services.NewPreferencesStore(db)
	logService = services.NewLogServiceWithLevel(db, cfg.LogLevel)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(reprocessCmd)
}

package cli

import (
	"fmt"
	"os"

	"github.com/godprim3/intelligent-email-assistant/internal/llm"
	"github.com/godprim3/intelligent-email-assistant/internal/services"
	"github.com/spf13/cobra"
)

var reprocessLimit int

// reprocessCmd re-runs analysis for failed messages
var reprocessCmd = &cobra.Command{
	Use:   "reprocess <账户>",
	Short: "重新分析失败的邮件",
	Long:  `对处理失败的邮件重新执行分析。需要配置可用的分析模型。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		accountID := args[0]

		router := llm.NewRouter(cfg.DefaultProvider)
		router.Register(llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel))
		router.Register(llm.NewDeepSeekProvider(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, cfg.DeepSeekModel))

		messages := services.NewMessageStore(db)
		prefs := services.NewPreferencesStore(db)
		intake := services.NewIntakeService(messages, prefs, router, logService)

		recovered, err := intake.ReprocessFailed(accountID, reprocessLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: 重新分析失败: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("已恢复 %d 封邮件。\n", recovered)
	},
}

func init() {
	reprocessCmd.Flags().IntVar(&reprocessLimit, "limit", 50, "单次处理的最大数量")
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"github.com/spf13/cobra"
)

var (
	prefsReplyStyle    string
	prefsKeywords      string
	prefsTrusted       string
	prefsNotifyEnabled bool
	prefsNotifyNumber  string
	prefsDelayMinutes  int
	prefsProvider      string
	prefsConfidence    float64
)

// prefsCmd represents the preferences command group
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "账户偏好管理",
	Long:  `查看和修改账户的偏好设置，包括回复风格、关注关键词和通知号码。`,
}

// prefsShowCmd shows the preferences for an account
var prefsShowCmd = &cobra.Command{
	Use:   "show <账户>",
	Short: "显示账户偏好",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		accountID := args[0]

		prefs, stored, err := prefsStore.GetOrDefault(accountID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: 无法读取偏好设置: %v\n", err)
			os.Exit(1)
		}

		if !stored {
			fmt.Println("该账户尚未保存偏好，以下为默认值:")
		}
		fmt.Printf("账户:           %s\n", prefs.AccountID)
		fmt.Printf("回复风格:       %s\n", prefs.ReplyStyle)
		fmt.Printf("关注关键词:     %s\n", strings.Join(prefs.KeywordList(), ", "))
		fmt.Printf("信任发件人:     %s\n", strings.Join(prefs.TrustedSenderList(), ", "))
		fmt.Printf("通知开关:       %v\n", prefs.NotifyEnabled)
		fmt.Printf("通知号码:       %s\n", prefs.NotifyNumber)
		fmt.Printf("回复延迟(分钟): %d\n", prefs.DelayMinutes())
		fmt.Printf("默认模型:       %s\n", prefs.DefaultProvider)
		fmt.Printf("置信度阈值:     %.2f\n", prefs.ConfidenceThreshold)
	},
}

// prefsSetCmd updates the preferences for an account
var prefsSetCmd = &cobra.Command{
	Use:   "set <账户>",
	Short: "修改账户偏好",
	Long:  `修改账户的偏好设置，未指定的选项保持不变。`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		accountID := args[0]

		prefs, _, err := prefsStore.GetOrDefault(accountID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: 无法读取偏好设置: %v\n", err)
			os.Exit(1)
		}

		if cmd.Flags().Changed("reply-style") {
			prefs.ReplyStyle = prefsReplyStyle
		}
		if cmd.Flags().Changed("keywords") {
			prefs.SetKeywordList(splitList(prefsKeywords))
		}
		if cmd.Flags().Changed("trusted") {
			prefs.SetTrustedSenderList(splitList(prefsTrusted))
		}
		if cmd.Flags().Changed("notify") {
			prefs.NotifyEnabled = prefsNotifyEnabled
		}
		if cmd.Flags().Changed("notify-number") {
			prefs.NotifyNumber = prefsNotifyNumber
		}
		if cmd.Flags().Changed("delay") {
			prefs.ResponseDelayMinutes = prefsDelayMinutes
		}
		if cmd.Flags().Changed("provider") {
			prefs.DefaultProvider = prefsProvider
		}
		if cmd.Flags().Changed("confidence") {
			prefs.ConfidenceThreshold = prefsConfidence
		}

		if err := prefsStore.Put(prefs); err != nil {
			fmt.Fprintf(os.Stderr, "错误: 保存偏好设置失败: %v\n", err)
			os.Exit(1)
		}

		logService.LogInfo(accountID, models.LogModuleCLI, "update_preferences", "Preferences updated via CLI", nil)
		fmt.Println("偏好设置已保存。")
	},
}

// splitList parses a comma-separated flag value
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func init() {
	prefsSetCmd.Flags().StringVar(&prefsReplyStyle, "reply-style", "", "回复风格 (professional/casual/friendly)")
	prefsSetCmd.Flags().StringVar(&prefsKeywords, "keywords", "", "关注关键词，逗号分隔")
	prefsSetCmd.Flags().StringVar(&prefsTrusted, "trusted", "", "信任发件人，逗号分隔")
	prefsSetCmd.Flags().BoolVar(&prefsNotifyEnabled, "notify", false, "是否开启 WhatsApp 通知")
	prefsSetCmd.Flags().StringVar(&prefsNotifyNumber, "notify-number", "", "通知号码")
	prefsSetCmd.Flags().IntVar(&prefsDelayMinutes, "delay", 0, "自动回复延迟(分钟)")
	prefsSetCmd.Flags().StringVar(&prefsProvider, "provider", "", "默认分析模型 (openai/deepseek)")
	prefsSetCmd.Flags().Float64Var(&prefsConfidence, "confidence", 0, "置信度阈值 (0-1)")

	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
)

func newTokenCommand() *cobra.Command {
	var secret string
	var subject string
	var role string
	var expiration time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发调用演化任务接口所需的令牌",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("需要通过 --secret 或 JWT_SECRET 指定密钥")
			}

			ss, err := utils.GenerateToken(secret, subject, role, expiration)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ss)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "签名密钥，默认读取 JWT_SECRET")
	cmd.Flags().StringVar(&subject, "subject", "cli", "令牌的主体")
	cmd.Flags().StringVar(&role, "role", "operator", "令牌的角色")
	cmd.Flags().DurationVar(&expiration, "expiration", 14*24*time.Hour, "有效期")

	return cmd
}

package cli

import (
	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/document"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
)

func newInitCommand() *cobra.Command {
	opts := &inputOptions{}

	cmd := &cobra.Command{
		Use:   "init [file]",
		Short: "用贪心算法生成一个初始排程",
		Long: `读取项目文档（默认从标准输入），随机生成满足依赖的任务顺序并选择模式，
按顺序把每个任务放在资源允许的最早时刻，输出排程文档。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, format, err := opts.readProject(cmd, args)
			if err != nil {
				return err
			}

			selector, err := scheduler.LookupModeSelector(opts.strategy)
			if err != nil {
				return err
			}

			schedule, err := scheduler.NewGreedySchedule(p, opts.rng(cmd), selector)
			if err != nil {
				return err
			}

			return document.EncodeSchedule(cmd.OutOrStdout(), format, schedule)
		},
	}
	opts.bind(cmd)

	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/document"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
)

func newEvolveCommand() *cobra.Command {
	opts := &inputOptions{}
	params := scheduler.DefaultParameters()
	var timeout time.Duration
	var quiet bool

	cmd := &cobra.Command{
		Use:   "evolve [file]",
		Short: "用遗传算法优化排程",
		Long: `读取项目文档，运行遗传算法直到达到最大代数、找到等于下界的排程或者超时，
输出找到的最好排程。超时或者按下 CTRL+C 时输出目前为止最好的排程。`,
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
			params.Selector = selector

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			result, err := scheduler.Evolve(ctx, p, params, opts.rng(cmd))
			if err != nil {
				interrupted := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
				if !interrupted || result == nil || result.Best == nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "演化被中断 (%v)，输出目前最好的排程\n", err)
			}

			if !quiet {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "makespan=%d 下界=%d 代数=%d 评估=%d 用时=%s\n",
					result.Makespan(), result.LowerBound.Value, result.Generations, result.Evaluations, time.Since(start).Round(time.Millisecond))
			}

			return document.EncodeSchedule(cmd.OutOrStdout(), format, result.Best)
		},
	}
	opts.bind(cmd)

	cmd.Flags().IntVar(&params.PopulationSize, "population", params.PopulationSize, "种群大小")
	cmd.Flags().IntVar(&params.MaxGenerations, "generations", params.MaxGenerations, "最大迭代次数")
	cmd.Flags().Float64Var(&params.CrossoverRate, "crossover", params.CrossoverRate, "交叉概率")
	cmd.Flags().Float64Var(&params.MutationRate, "mutation", params.MutationRate, "变异概率")
	cmd.Flags().IntVar(&params.EliteCount, "elite", params.EliteCount, "每代直接保留的精英数量")
	cmd.Flags().IntVar(&params.TournamentSize, "tournament", params.TournamentSize, "锦标赛规模")
	cmd.Flags().IntVar(&params.Parallelism, "parallelism", 0, "并行评估的 goroutine 数量，0 表示 GOMAXPROCS")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "最长运行时间，0 表示不限制")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "不在标准错误输出统计信息")

	return cmd
}

// Package cli 是 mrcpsp 命令行工具：从标准输入读取项目，输出初始排程或演化后的排程
package cli

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/spf13/cobra"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/document"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
)

func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "mrcpsp",
		Short:         "多模式资源受限项目调度求解器",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newInitCommand(),
		newEvolveCommand(),
		newTokenCommand(),
	)

	return root
}

// inputOptions 是 init 和 evolve 共用的参数
type inputOptions struct {
	format   string
	seed     int64
	strategy string
}

func (o *inputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "json", "项目文档和输出的格式 (json, yaml)")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "随机数种子，不指定时随机生成")
	cmd.Flags().StringVar(&o.strategy, "strategy", scheduler.StrategyRandom, "初始模式选择策略 (random, shortest)")
}

func (o *inputOptions) rng(cmd *cobra.Command) *rand.Rand {
	seed := o.seed
	if !cmd.Flags().Changed("seed") {
		seed = rand.Int63()
	}
	return rand.New(rand.NewSource(seed))
}

// readProject 有参数时从文件读取，否则从标准输入读取
func (o *inputOptions) readProject(cmd *cobra.Command, args []string) (*domain.Project, document.Format, error) {
	format, err := document.ParseFormat(o.format)
	if err != nil {
		return nil, "", err
	}

	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		r = f
	}

	p, err := document.LoadProject(r, format)
	if err != nil {
		return nil, "", fmt.Errorf("读取项目失败: %w", err)
	}
	return p, format, nil
}

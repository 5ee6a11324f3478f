package scheduler

import (
	"fmt"
	"math/rand"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

// ModeSelector 为每个任务选择一个模式，返回值按任务下标排列
type ModeSelector func(p *domain.Project, rng *rand.Rand) []domain.ModeID

const (
	StrategyRandom   = "random"
	StrategyShortest = "shortest"
)

// RandomModes 为每个任务独立均匀地选择模式
func RandomModes(p *domain.Project, rng *rand.Rand) []domain.ModeID {
	modes := make([]domain.ModeID, len(p.Tasks))
	for i, task := range p.Tasks {
		modes[i] = rng.Intn(len(task.Modes))
	}
	return modes
}

// ShortestModes 选择持续时间最短的模式，相同时取下标最小的
func ShortestModes(p *domain.Project, _ *rand.Rand) []domain.ModeID {
	modes := make([]domain.ModeID, len(p.Tasks))
	for i, task := range p.Tasks {
		best := 0
		for m := 1; m < len(task.Modes); m++ {
			if task.Modes[m].Duration < task.Modes[best].Duration {
				best = m
			}
		}
		modes[i] = best
	}
	return modes
}

// LookupModeSelector 根据名字返回模式选择策略，空字符串表示默认的随机策略
func LookupModeSelector(name string) (ModeSelector, error) {
	switch name {
	case "", StrategyRandom:
		return RandomModes, nil
	case StrategyShortest:
		return ShortestModes, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownModeStrategy, name)
	}
}

func checkModes(p *domain.Project, modes []domain.ModeID) error {
	if len(modes) != len(p.Tasks) {
		return fmt.Errorf("模式选择长度为 %d，任务数为 %d: %w", len(modes), len(p.Tasks), domain.ErrGenotypeMismatch)
	}
	for id, m := range modes {
		if m < 0 || m >= len(p.Tasks[id].Modes) {
			return &domain.DanglingReferenceError{Kind: "mode", ID: m}
		}
	}
	return nil
}

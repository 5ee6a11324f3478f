package scheduler

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

// Place 按 order 依次放置任务：每个任务在依赖全部结束、且所有资源都有足够空闲之后的最早时刻开始
// 结果已经按任务下标排序
func Place(p *domain.Project, order []domain.TaskID, modes []domain.ModeID) (domain.Genotype, error) {
	if err := checkOrdering(p, order); err != nil {
		return nil, err
	}
	if err := checkModes(p, modes); err != nil {
		return nil, err
	}

	tls := NewTimelines(p)
	finish := make([]domain.TimeStamp, len(p.Tasks))
	genotype := make(domain.Genotype, 0, len(order))

	for _, taskID := range order {
		task := p.Task(taskID)
		mode := p.Mode(taskID, modes[taskID])

		// 依赖中最晚的结束时间，没有依赖则为 0
		var depFinish domain.TimeStamp
		for _, dep := range task.Deps {
			depFinish = max(depFinish, finish[dep])
		}

		demand := mode.Demand()
		start, err := tls.EarliestStart(depFinish, demand, mode.Duration)
		if err != nil {
			return nil, fmt.Errorf("放置任务 %d 失败: %w", taskID, err)
		}
		if err := tls.Commit(start, demand, mode.Duration); err != nil {
			return nil, fmt.Errorf("放置任务 %d 失败: %w", taskID, err)
		}

		finish[taskID] = start + mode.Duration
		genotype = append(genotype, domain.Nucleotide{
			Task:        taskID,
			Mode:        modes[taskID],
			ReleaseTime: start,
		})
	}

	// 规范化
	slices.SortFunc(genotype, func(a, b domain.Nucleotide) int {
		return a.Task - b.Task
	})
	return genotype, nil
}

// NewGreedy 随机排列任务、选择模式，再贪心地放置，得到一个可行的初始基因型
func NewGreedy(p *domain.Project, rng *rand.Rand, selector ModeSelector) (domain.Genotype, error) {
	if selector == nil {
		selector = RandomModes
	}

	order, err := DepOrder(p, rng)
	if err != nil {
		return nil, err
	}
	modes := selector(p, rng)

	return Place(p, order, modes)
}

// NewGreedySchedule 和 NewGreedy 相同，但返回完整的排程
func NewGreedySchedule(p *domain.Project, rng *rand.Rand, selector ModeSelector) (*domain.Schedule, error) {
	genotype, err := NewGreedy(p, rng, selector)
	if err != nil {
		return nil, err
	}
	return &domain.Schedule{Project: p, Genotype: genotype}, nil
}

// Repair 保留基因型中的模式选择，按原有开始时间的先后重新放置，得到一个可行的基因型
// 交叉和变异之后的基因型通常不可行，需要经过修复
func Repair(p *domain.Project, g domain.Genotype) (domain.Genotype, error) {
	if len(g) != len(p.Tasks) || !g.Canonical() {
		return nil, fmt.Errorf("无法修复基因型: %w", domain.ErrGenotypeMismatch)
	}

	order, err := PriorityOrder(p, g.ReleaseTimes())
	if err != nil {
		return nil, err
	}
	return Place(p, order, g.Modes())
}

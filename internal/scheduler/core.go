package scheduler

import (
	"fmt"
	"math/rand"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

// Crossover 均匀交叉：逐个任务以 1/2 的概率从 a 或 b 中取基因
// 两个父本都必须是规范形式并且长度相同；子代的开始时间不一定可行，需要再经过 Repair
func Crossover(rng *rand.Rand, a, b domain.Genotype) (domain.Genotype, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("父本长度分别为 %d 和 %d: %w", len(a), len(b), domain.ErrGenotypeMismatch)
	}
	if !a.Canonical() || !b.Canonical() {
		return nil, fmt.Errorf("父本不是规范形式: %w", domain.ErrGenotypeMismatch)
	}

	child := make(domain.Genotype, len(a))
	for i := range a {
		if rng.Float64() < 0.5 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child, nil
}

// mutate 返回变异后的新基因型，不修改 g
// 每个基因以 MutationRate 的概率重新选择模式，再以 MutationRate 的概率借用另一个任务的开始时间（改变修复时的放置顺序）
func (s *Scheduler) mutate(g domain.Genotype) domain.Genotype {
	mutated := g.Clone()
	for i := range mutated {
		if modes := len(s.project.Tasks[i].Modes); modes > 1 && s.rng.Float64() < s.parameters.MutationRate {
			mutated[i].Mode = s.rng.Intn(modes)
		}

		if len(mutated) > 1 && s.rng.Float64() < s.parameters.MutationRate {
			j := s.rng.Intn(len(mutated))
			mutated[i].ReleaseTime, mutated[j].ReleaseTime = mutated[j].ReleaseTime, mutated[i].ReleaseTime
		}
	}
	return mutated
}

// 锦标赛选择：随机抽取 TournamentSize 个个体，返回其中适应度最好的
// makespan 越小越好，轮盘赌不适用
func (s *Scheduler) selectByTournament(pop []*Chromosome) *Chromosome {
	best := pop[s.rng.Intn(len(pop))]
	for i := 1; i < s.parameters.TournamentSize; i++ {
		candidate := pop[s.rng.Intn(len(pop))]
		if candidate.fitness.Less(best.fitness) {
			best = candidate
		}
	}
	return best
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidParameters = errors.New("遗传算法参数不合法")

type Scheduler struct {
	project    *domain.Project // 只读，在所有 goroutine 之间共享
	parameters *Parameters
	rng        *rand.Rand // 只在驱动 goroutine 中使用
	bound      *Bound
}

func New(project *domain.Project, parameters *Parameters, rng *rand.Rand) (*Scheduler, error) {
	if parameters == nil {
		parameters = DefaultParameters()
	}
	// 在副本上补默认值，不修改调用方的参数
	copied := *parameters
	parameters = &copied
	switch {
	case parameters.PopulationSize < 1:
		return nil, fmt.Errorf("种群大小为 %d: %w", parameters.PopulationSize, ErrInvalidParameters)
	case parameters.MaxGenerations < 1:
		return nil, fmt.Errorf("最大迭代次数为 %d: %w", parameters.MaxGenerations, ErrInvalidParameters)
	case parameters.EliteCount < 0 || parameters.EliteCount >= parameters.PopulationSize:
		return nil, fmt.Errorf("精英数量为 %d: %w", parameters.EliteCount, ErrInvalidParameters)
	case parameters.TournamentSize < 1:
		return nil, fmt.Errorf("锦标赛规模为 %d: %w", parameters.TournamentSize, ErrInvalidParameters)
	}
	if parameters.Selector == nil {
		parameters.Selector = RandomModes
	}

	if err := utils.ValidateProject(project); err != nil {
		return nil, err
	}

	bound, err := LowerBound(project)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		project:    project,
		parameters: parameters,
		rng:        rng,
		bound:      bound,
	}, nil
}

// Evolve 运行遗传算法，直到达到最大迭代次数、找到等于下界的解或者 ctx 被取消
// ctx 被取消时返回目前为止最好的结果和 ctx.Err()
func (s *Scheduler) Evolve(ctx context.Context) (*Result, error) {
	result := &Result{
		History:    make([]domain.TimeStamp, 0, s.parameters.MaxGenerations),
		LowerBound: s.bound,
	}

	// 生成初始种群：随机数在当前 goroutine 中生成，放置过程并行执行
	orders := make([][]domain.TaskID, s.parameters.PopulationSize)
	modes := make([][]domain.ModeID, s.parameters.PopulationSize)
	for i := range orders {
		order, err := DepOrder(s.project, s.rng)
		if err != nil {
			return nil, err
		}
		orders[i] = order
		modes[i] = s.parameters.Selector(s.project, s.rng)
	}

	pop := make([]*Chromosome, s.parameters.PopulationSize)
	if err := s.evaluate(ctx, pop, func(i int) (domain.Genotype, error) {
		return Place(s.project, orders[i], modes[i])
	}); err != nil {
		return nil, err
	}
	result.Evaluations += len(pop)

	var best *Chromosome
	for gen := 0; gen < s.parameters.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			s.finish(result, best)
			return result, err
		}

		// 按适应度排序，相同时保持原有顺序
		slices.SortStableFunc(pop, func(a, b *Chromosome) int {
			return slices.Compare(a.fitness, b.fitness)
		})

		if best == nil || pop[0].fitness.Less(best.fitness) {
			best = pop[0]
		}
		result.Generations = gen + 1
		result.History = append(result.History, best.fitness[0])

		// 已经达到下界，不可能更好了
		if best.fitness[0] <= s.bound.Value {
			break
		}
		if gen == s.parameters.MaxGenerations-1 {
			break
		}

		// 繁殖
		newPop := make([]*Chromosome, 0, s.parameters.PopulationSize)

		// 保留精英
		newPop = append(newPop, pop[:s.parameters.EliteCount]...)

		// 子代在当前 goroutine 中生成，之后并行修复和评估
		children := make([]domain.Genotype, 0, s.parameters.PopulationSize-len(newPop))
		for len(newPop)+len(children) < s.parameters.PopulationSize {
			p1 := s.selectByTournament(pop)
			p2 := s.selectByTournament(pop)

			child := p1.genotype
			if s.rng.Float64() < s.parameters.CrossoverRate {
				crossed, err := Crossover(s.rng, p1.genotype, p2.genotype)
				if err != nil {
					return nil, err
				}
				child = crossed
			}
			children = append(children, s.mutate(child))
		}

		offspring := make([]*Chromosome, len(children))
		if err := s.evaluate(ctx, offspring, func(i int) (domain.Genotype, error) {
			return Repair(s.project, children[i])
		}); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.finish(result, best)
				return result, ctxErr
			}
			return nil, err
		}
		result.Evaluations += len(offspring)

		pop = append(newPop, offspring...)
	}

	s.finish(result, best)
	return result, nil
}

// evaluate 并行地生成 pop 中的每个个体并计算适应度，每个 goroutine 使用自己的资源时间线
func (s *Scheduler) evaluate(ctx context.Context, pop []*Chromosome, build func(i int) (domain.Genotype, error)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parameters.parallelism())

	for i := range pop {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			genotype, err := build(i)
			if err != nil {
				return err
			}
			pop[i] = &Chromosome{
				genotype: genotype,
				fitness:  Evaluate(&domain.Schedule{Project: s.project, Genotype: genotype}),
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Scheduler) finish(result *Result, best *Chromosome) {
	if best == nil {
		return
	}
	result.Best = &domain.Schedule{Project: s.project, Genotype: best.genotype.Clone()}
	result.Fitness = best.fitness
}

// Evolve 是 New 和 Scheduler.Evolve 的简单组合
func Evolve(ctx context.Context, project *domain.Project, parameters *Parameters, rng *rand.Rand) (*Result, error) {
	s, err := New(project, parameters, rng)
	if err != nil {
		return nil, err
	}
	return s.Evolve(ctx)
}

package scheduler

import (
	"runtime"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

// Chromosome: 种群中的一个个体
type Chromosome struct {
	genotype domain.Genotype
	fitness  Fitness
}

// 遗传算法参数
type Parameters struct {
	PopulationSize int          // 种群大小
	MaxGenerations int          // 最大迭代次数
	CrossoverRate  float64      // 交叉概率
	MutationRate   float64      // 变异概率
	EliteCount     int          // 精英数量
	TournamentSize int          // 锦标赛规模
	Parallelism    int          // 并行评估的 goroutine 数量，0 表示 GOMAXPROCS
	Selector       ModeSelector // 初始种群的模式选择策略
}

// ParametersFrom 把接口层的参数转换成算法参数
func ParametersFrom(params domain.EvolutionParameters) (*Parameters, error) {
	selector, err := LookupModeSelector(params.Strategy)
	if err != nil {
		return nil, err
	}

	return &Parameters{
		PopulationSize: params.PopulationSize,
		MaxGenerations: params.MaxGenerations,
		CrossoverRate:  params.CrossoverRate,
		MutationRate:   params.MutationRate,
		EliteCount:     params.EliteCount,
		TournamentSize: params.TournamentSize,
		Parallelism:    params.Parallelism,
		Selector:       selector,
	}, nil
}

// DefaultParameters 在命令行没有指定参数时使用
func DefaultParameters() *Parameters {
	return &Parameters{
		PopulationSize: 50,
		MaxGenerations: 100,
		CrossoverRate:  0.9,
		MutationRate:   0.05,
		EliteCount:     2,
		TournamentSize: 3,
		Selector:       RandomModes,
	}
}

func (p *Parameters) parallelism() int {
	if p.Parallelism > 0 {
		return p.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// Result 是一次演化的结果
type Result struct {
	Best        *domain.Schedule   `json:"best"`
	Fitness     Fitness            `json:"fitness"`
	Generations int                `json:"generations"` // 实际运行的代数
	Evaluations int                `json:"evaluations"` // 放置并评估的个体总数
	History     []domain.TimeStamp `json:"history"`     // 每一代的最优 makespan
	LowerBound  *Bound             `json:"lowerBound"`
}

func (r *Result) Makespan() domain.TimeStamp {
	return Makespan(r.Best)
}

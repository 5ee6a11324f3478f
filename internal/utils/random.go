package utils

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

var resourceNames = []string{
	"工人", "电工", "木工", "焊工", "吊车", "挖掘机", "混凝土泵", "脚手架",
	"测量员", "水管工", "油漆工", "货车", "发电机", "钢筋工",
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
var digits = "0123456789"

func GenerateRandomID(rng *rand.Rand, letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rng.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rng.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// RandomProjectOptions 控制随机项目的规模，零值字段使用默认值
type RandomProjectOptions struct {
	Tasks       int     // 任务数量
	Resources   int     // 资源数量
	MaxModes    int     // 每个任务最多的模式数量
	MaxDuration int64   // 模式最长持续时间
	MaxQuantity int64   // 资源最大数量
	DepDensity  float64 // 任意两个任务之间存在依赖的概率
}

func (o *RandomProjectOptions) withDefaults() RandomProjectOptions {
	opts := *o
	if opts.Tasks <= 0 {
		opts.Tasks = 10
	}
	if opts.Resources <= 0 {
		opts.Resources = 3
	}
	if opts.MaxModes <= 0 {
		opts.MaxModes = 3
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 10
	}
	if opts.MaxQuantity <= 0 {
		opts.MaxQuantity = 5
	}
	if opts.DepDensity <= 0 {
		opts.DepDensity = 0.2
	}
	return opts
}

// GenerateRandomProject 生成一个满足所有不变量的随机项目
// 依赖只从下标较小的任务指向下标较大的任务，因此一定无环
func GenerateRandomProject(rng *rand.Rand, options RandomProjectOptions) *domain.Project {
	opts := options.withDefaults()

	p := &domain.Project{
		Resources: make([]domain.Resource, opts.Resources),
		Tasks:     make([]domain.Task, opts.Tasks),
	}

	for i := range p.Resources {
		p.Resources[i] = domain.Resource{
			Name:     resourceNames[rng.Intn(len(resourceNames))] + GenerateRandomID(rng, 0, 3),
			Cost:     rng.Int63n(100),
			Quantity: rng.Int63n(opts.MaxQuantity) + 1,
		}
	}

	for i := range p.Tasks {
		deps := make([]domain.TaskID, 0)
		for j := 0; j < i; j++ {
			if rng.Float64() < opts.DepDensity {
				deps = append(deps, j)
			}
		}

		modes := make([]domain.Mode, rng.Intn(opts.MaxModes)+1)
		for m := range modes {
			modes[m] = domain.Mode{
				Duration:     rng.Int63n(opts.MaxDuration) + 1,
				Requirements: GenerateRandomRequirements(rng, p.Resources),
			}
		}

		p.Tasks[i] = domain.Task{Deps: deps, Modes: modes}
	}

	return p
}

// 使用 Fisher-Yates 洗牌算法选出一个随机的资源子集，每种资源的需求量不超过它的总量
func GenerateRandomRequirements(rng *rand.Rand, resources []domain.Resource) []domain.ModeRequirement {
	ids := make([]domain.ResourceID, len(resources))
	for i := range ids {
		ids[i] = i
	}
	for i := len(ids) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}

	n := rng.Intn(len(ids) + 1)
	reqs := make([]domain.ModeRequirement, 0, n)
	for _, id := range ids[:n] {
		reqs = append(reqs, domain.ModeRequirement{
			ID:       id,
			Quantity: rng.Int63n(resources[id].Quantity) + 1,
		})
	}
	return reqs
}

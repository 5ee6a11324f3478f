package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
)

func req(id domain.ResourceID, q domain.Quantity) domain.ModeRequirement {
	return domain.ModeRequirement{ID: id, Quantity: q}
}

func mode(d domain.Duration, reqs ...domain.ModeRequirement) domain.Mode {
	return domain.Mode{Duration: d, Requirements: reqs}
}

func task(deps []domain.TaskID, modes ...domain.Mode) domain.Task {
	return domain.Task{Deps: deps, Modes: modes}
}

func resources(quantities ...domain.Quantity) []domain.Resource {
	res := make([]domain.Resource, len(quantities))
	for i, q := range quantities {
		res[i] = domain.Resource{Name: utils.GenerateRandomID(rand.New(rand.NewSource(int64(i))), 3, 0), Quantity: q}
	}
	return res
}

// randomProjects 生成若干个规模不同的合法随机项目
func randomProjects(t *testing.T, n int) []*domain.Project {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	projects := make([]*domain.Project, 0, n)
	for i := 0; i < n; i++ {
		p := utils.GenerateRandomProject(rng, utils.RandomProjectOptions{
			Tasks:      rng.Intn(25) + 1,
			Resources:  rng.Intn(4) + 1,
			MaxModes:   3,
			DepDensity: 0.15,
		})
		require.NoError(t, utils.ValidateProject(p))
		projects = append(projects, p)
	}
	return projects
}

// requireFeasible 检查依赖约束和每个时刻的资源约束
func requireFeasible(t *testing.T, p *domain.Project, g domain.Genotype) {
	t.Helper()

	require.Len(t, g, len(p.Tasks))
	require.True(t, g.Canonical())

	for id, tk := range p.Tasks {
		for _, dep := range tk.Deps {
			require.LessOrEqual(t, g[dep].ReleaseTime+p.Duration(dep, g[dep].Mode), g[id].ReleaseTime,
				"任务 %d 在依赖 %d 结束之前开始", id, dep)
		}
	}

	// 逐个时刻检查资源占用
	makespan := Makespan(&domain.Schedule{Project: p, Genotype: g})
	for r, res := range p.Resources {
		for tick := domain.TimeStamp(0); tick < makespan; tick++ {
			var use domain.Quantity
			for _, n := range g {
				m := p.Mode(n.Task, n.Mode)
				if n.ReleaseTime <= tick && tick < n.ReleaseTime+m.Duration {
					for _, rq := range m.Requirements {
						if rq.ID == r {
							use += rq.Quantity
						}
					}
				}
			}
			require.LessOrEqual(t, use, res.Quantity, "资源 %d 在时刻 %d 超出容量", r, tick)
		}
	}
}

package scheduler

import (
	"cmp"
	"slices"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
)

// Makespan 返回所有任务中最晚的结束时刻，空项目为 0
func Makespan(s *domain.Schedule) domain.TimeStamp {
	var makespan domain.TimeStamp
	for _, n := range s.Genotype {
		makespan = max(makespan, n.ReleaseTime+s.Project.Duration(n.Task, n.Mode))
	}
	return makespan
}

// Fitness 是目标值向量，每一项都是越小越好
// 目前只有 makespan 一项
type Fitness []int64

func Evaluate(s *domain.Schedule) Fitness {
	return Fitness{Makespan(s)}
}

// Less 按字典序比较
func (f Fitness) Less(other Fitness) bool {
	return slices.Compare(f, other) < 0
}

// Dominates 判断 f 是否 Pareto 支配 other：每一项都不差，并且至少一项更好
func (f Fitness) Dominates(other Fitness) bool {
	if len(f) != len(other) {
		return false
	}
	better := false
	for i := range f {
		if f[i] > other[i] {
			return false
		}
		if f[i] < other[i] {
			better = true
		}
	}
	return better
}

// Report 描述一个排程违反约束的程度
type Report struct {
	PrecedenceViolations int   `json:"precedenceViolations"` // 在依赖结束之前开始的 (任务, 依赖) 对数
	Overload             int64 `json:"overload"`             // 超出容量的 单位 × 时间 之和
}

func (r Report) Feasible() bool {
	return r.PrecedenceViolations == 0 && r.Overload == 0
}

// Check 检查排程是否满足依赖和资源约束
func Check(s *domain.Schedule) (Report, error) {
	p, g := s.Project, s.Genotype
	if err := utils.ValidateGenotype(p, g); err != nil {
		return Report{}, err
	}

	var report Report

	for id, task := range p.Tasks {
		for _, dep := range task.Deps {
			depEnd := g[dep].ReleaseTime + p.Duration(dep, g[dep].Mode)
			if g[id].ReleaseTime < depEnd {
				report.PrecedenceViolations++
			}
		}
	}

	// 每个资源上的占用变化
	events := make([][]event, len(p.Resources))
	for _, n := range g {
		mode := p.Mode(n.Task, n.Mode)
		for _, req := range mode.Demand() {
			events[req.ID] = append(events[req.ID],
				event{time: n.ReleaseTime, delta: req.Quantity},
				event{time: n.ReleaseTime + mode.Duration, delta: -req.Quantity},
			)
		}
	}

	for r, evs := range events {
		slices.SortFunc(evs, func(a, b event) int {
			if a.time != b.time {
				return cmp.Compare(a.time, b.time)
			}
			return cmp.Compare(a.delta, b.delta)
		})

		capacity := p.Resources[r].Quantity
		var use domain.Quantity
		for i := 0; i < len(evs); {
			t := evs[i].time
			for ; i < len(evs) && evs[i].time == t; i++ {
				use += evs[i].delta
			}
			if i < len(evs) && use > capacity {
				report.Overload += (use - capacity) * (evs[i].time - t)
			}
		}
	}

	return report, nil
}

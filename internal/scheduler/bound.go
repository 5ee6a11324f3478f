package scheduler

import (
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

// Bound 是任意可行排程 makespan 的下界
type Bound struct {
	CriticalPath []domain.TaskID  `json:"criticalPath"` // 按拓扑顺序排列的关键任务
	PathLength   domain.TimeStamp `json:"pathLength"`   // 每个任务取最短模式时的关键路径长度
	Workload     domain.TimeStamp `json:"workload"`     // 资源工作量下界
	Value        domain.TimeStamp `json:"value"`
}

// LowerBound 计算两种下界并取较大者：
//  1. 关键路径：每个任务取最短持续时间，做一次 CPM 前向和后向计算
//  2. 资源工作量：每个资源上 Σ min(q × d) / 容量，向上取整
func LowerBound(p *domain.Project) (*Bound, error) {
	order, err := PriorityOrder(p, make([]domain.TimeStamp, len(p.Tasks)))
	if err != nil {
		return nil, err
	}

	durations := make([]domain.Duration, len(p.Tasks))
	for id, task := range p.Tasks {
		durations[id] = task.Modes[0].Duration
		for _, mode := range task.Modes[1:] {
			durations[id] = min(durations[id], mode.Duration)
		}
	}

	// 前向计算 ES 和 EF
	es := make([]domain.TimeStamp, len(p.Tasks))
	ef := make([]domain.TimeStamp, len(p.Tasks))
	var total domain.TimeStamp
	for _, id := range order {
		for _, dep := range p.Tasks[id].Deps {
			es[id] = max(es[id], ef[dep])
		}
		ef[id] = es[id] + durations[id]
		total = max(total, ef[id])
	}

	// 后向计算 LS，没有后继的任务 LF 为 total
	succ, _ := successors(p)
	ls := make([]domain.TimeStamp, len(p.Tasks))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		lf := total
		for _, s := range succ[id] {
			lf = min(lf, ls[s])
		}
		ls[id] = lf - durations[id]
	}

	bound := &Bound{
		CriticalPath: make([]domain.TaskID, 0),
		PathLength:   total,
	}
	for _, id := range order {
		if ls[id] == es[id] {
			bound.CriticalPath = append(bound.CriticalPath, id)
		}
	}

	// 每个任务在每个资源上至少消耗 min(q × d) 个 单位 × 时间
	work := make([]int64, len(p.Resources))
	for _, task := range p.Tasks {
		least := make([]int64, len(p.Resources))
		for m := range task.Modes {
			used := make([]int64, len(p.Resources))
			for _, req := range task.Modes[m].Demand() {
				used[req.ID] = req.Quantity * task.Modes[m].Duration
			}
			for r := range least {
				if m == 0 || used[r] < least[r] {
					least[r] = used[r]
				}
			}
		}
		for r := range work {
			work[r] += least[r]
		}
	}
	for r, res := range p.Resources {
		bound.Workload = max(bound.Workload, (work[r]+res.Quantity-1)/res.Quantity)
	}

	bound.Value = max(bound.PathLength, bound.Workload)
	return bound, nil
}

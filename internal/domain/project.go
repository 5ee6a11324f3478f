package domain

import (
	"math"
	"slices"
)

// 标识符都是对应序列中的下标
type (
	TaskID     = int
	ModeID     = int
	ResourceID = int
)

type (
	Quantity  = int64
	Duration  = int64
	TimeStamp = int64
)

type Resource struct {
	Name     string   `json:"resource/name" yaml:"resource/name"`
	Cost     int64    `json:"resource/cost" yaml:"resource/cost" validate:"min=0"`        // 预留给以后的目标函数，不影响 makespan
	Quantity Quantity `json:"resource/quantity" yaml:"resource/quantity" validate:"gt=0"` // 单位时间内可用的数量
}

type ModeRequirement struct {
	ID       ResourceID `json:"req/id" yaml:"req/id"`
	Quantity Quantity   `json:"req/quant" yaml:"req/quant"`
}

// Mode 表示任务的一种执行方式
type Mode struct {
	Duration     Duration          `json:"mode/duration" yaml:"mode/duration"`
	Requirements []ModeRequirement `json:"mode/requirements" yaml:"mode/requirements"`
}

type Task struct {
	Deps  []TaskID `json:"task/deps" yaml:"task/deps"`
	Modes []Mode   `json:"task/modes" yaml:"task/modes"`
}

// Project 加载并校验之后不再修改，可以在多个 goroutine 之间只读共享
type Project struct {
	Resources []Resource `json:"project/resources" yaml:"project/resources"`
	Tasks     []Task     `json:"project/tasks" yaml:"project/tasks"`
}

func (p *Project) NumTasks() int {
	return len(p.Tasks)
}

func (p *Project) NumResources() int {
	return len(p.Resources)
}

func (p *Project) Task(id TaskID) *Task {
	return &p.Tasks[id]
}

func (p *Project) Resource(id ResourceID) *Resource {
	return &p.Resources[id]
}

func (p *Project) Mode(task TaskID, mode ModeID) *Mode {
	return &p.Tasks[task].Modes[mode]
}

func (p *Project) Duration(task TaskID, mode ModeID) Duration {
	return p.Tasks[task].Modes[mode].Duration
}

// Demand 把同一个模式中对同一资源的多条需求合并，按资源下标升序返回
func (m *Mode) Demand() []ModeRequirement {
	merged := make(map[ResourceID]Quantity, len(m.Requirements))
	order := make([]ResourceID, 0, len(m.Requirements))
	for _, req := range m.Requirements {
		if _, exists := merged[req.ID]; !exists {
			order = append(order, req.ID)
		}
		// 超过 int64 上限时取上限，避免溢出成负数
		if req.Quantity > 0 && merged[req.ID] > math.MaxInt64-req.Quantity {
			merged[req.ID] = math.MaxInt64
			continue
		}
		merged[req.ID] += req.Quantity
	}

	demand := make([]ModeRequirement, 0, len(order))
	for _, id := range order {
		demand = append(demand, ModeRequirement{ID: id, Quantity: merged[id]})
	}
	slices.SortFunc(demand, func(a, b ModeRequirement) int {
		return a.ID - b.ID
	})
	return demand
}

package utils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateProject 按顺序检查项目的不变量，只返回遇到的第一个错误
func ValidateProject(p *domain.Project) error {
	if p == nil {
		return &domain.MalformedDocumentError{Reason: "项目为空"}
	}

	// 资源本身的字段
	for i := range p.Resources {
		if err := validate.Struct(p.Resources[i]); err != nil {
			return &domain.MalformedDocumentError{Reason: fmt.Sprintf("资源 %d", i), Err: err}
		}
	}

	for taskID, task := range p.Tasks {
		if len(task.Modes) == 0 {
			return &domain.EmptyModeSetError{Task: taskID}
		}

		for _, dep := range task.Deps {
			if dep < 0 || dep >= len(p.Tasks) {
				return &domain.DanglingReferenceError{Kind: "task", ID: dep}
			}
			if dep == taskID {
				// 自环也是环
				return fmt.Errorf("任务 %d 依赖自身: %w", taskID, domain.ErrCyclicDependencies)
			}
		}

		for modeID := range task.Modes {
			if err := validateMode(p, taskID, modeID); err != nil {
				return err
			}
		}
	}

	if err := ValidateAcyclic(p); err != nil {
		return err
	}

	return nil
}

func validateMode(p *domain.Project, taskID domain.TaskID, modeID domain.ModeID) error {
	mode := p.Mode(taskID, modeID)
	if mode.Duration <= 0 {
		return &domain.NonPositiveDurationError{Task: taskID, Mode: modeID}
	}

	for _, req := range mode.Requirements {
		if req.ID < 0 || req.ID >= len(p.Resources) {
			return &domain.DanglingReferenceError{Kind: "resource", ID: req.ID}
		}
		// 需求必须为正并且不超过资源总量，否则这个模式永远无法执行
		if req.Quantity <= 0 || req.Quantity > p.Resources[req.ID].Quantity {
			return &domain.InfeasibleModeError{Task: taskID, Mode: modeID}
		}
	}

	// 同一资源的多条需求合并之后再和总量比较，和剩余量比较以避免溢出
	used := make(map[domain.ResourceID]domain.Quantity, len(mode.Requirements))
	for _, req := range mode.Requirements {
		if req.Quantity > p.Resources[req.ID].Quantity-used[req.ID] {
			return &domain.InfeasibleModeError{Task: taskID, Mode: modeID}
		}
		used[req.ID] += req.Quantity
	}

	return nil
}

// ValidateAcyclic 用 Kahn 算法检查依赖图是否有环，要求所有依赖下标已经合法
func ValidateAcyclic(p *domain.Project) error {
	n := len(p.Tasks)
	inDegree := make([]int, n)
	successors := make([][]domain.TaskID, n)
	for id, task := range p.Tasks {
		inDegree[id] = len(task.Deps)
		for _, dep := range task.Deps {
			successors[dep] = append(successors[dep], id)
		}
	}

	queue := make([]domain.TaskID, 0, n)
	for id := range inDegree {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visited++

		for _, succ := range successors[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if visited != n {
		return fmt.Errorf("%d 个任务中只有 %d 个可以排序: %w", n, visited, domain.ErrCyclicDependencies)
	}
	return nil
}

// ValidateGenotype 检查基因型是否与项目对应：规范顺序、模式下标合法、开始时间非负
func ValidateGenotype(p *domain.Project, g domain.Genotype) error {
	if len(g) != len(p.Tasks) {
		return fmt.Errorf("基因型长度为 %d，项目任务数为 %d: %w", len(g), len(p.Tasks), domain.ErrGenotypeMismatch)
	}
	if !g.Canonical() {
		return fmt.Errorf("基因型没有按任务下标排序: %w", domain.ErrGenotypeMismatch)
	}
	for _, n := range g {
		if n.Mode < 0 || n.Mode >= len(p.Tasks[n.Task].Modes) {
			return &domain.DanglingReferenceError{Kind: "mode", ID: n.Mode}
		}
		if n.ReleaseTime < 0 {
			return fmt.Errorf("任务 %d 的开始时间为负: %w", n.Task, domain.ErrGenotypeMismatch)
		}
	}
	return nil
}

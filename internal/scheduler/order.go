package scheduler

import (
	"fmt"
	"math/rand"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

// successors 返回每个任务的后继任务和入度
func successors(p *domain.Project) ([][]domain.TaskID, []int) {
	succ := make([][]domain.TaskID, len(p.Tasks))
	inDegree := make([]int, len(p.Tasks))
	for id, task := range p.Tasks {
		inDegree[id] = len(task.Deps)
		for _, dep := range task.Deps {
			succ[dep] = append(succ[dep], id)
		}
	}
	return succ, inDegree
}

// DepOrder 随机生成一个满足依赖关系的任务排列
// 每一步在所有依赖已经排好的任务中均匀随机地选出一个
func DepOrder(p *domain.Project, rng *rand.Rand) ([]domain.TaskID, error) {
	succ, inDegree := successors(p)

	eligible := make([]domain.TaskID, 0, len(p.Tasks))
	for id := range p.Tasks {
		if inDegree[id] == 0 {
			eligible = append(eligible, id)
		}
	}

	order := make([]domain.TaskID, 0, len(p.Tasks))
	for len(order) < len(p.Tasks) {
		if len(eligible) == 0 {
			return nil, fmt.Errorf("排好 %d 个任务后没有可选的任务: %w", len(order), domain.ErrCyclicDependencies)
		}

		// 随机选择，并把最后一个元素换到被选中的位置
		i := rng.Intn(len(eligible))
		choice := eligible[i]
		eligible[i] = eligible[len(eligible)-1]
		eligible = eligible[:len(eligible)-1]
		order = append(order, choice)

		for _, s := range succ[choice] {
			inDegree[s]--
			if inDegree[s] == 0 {
				eligible = append(eligible, s)
			}
		}
	}

	return order, nil
}

// PriorityOrder 按优先级生成满足依赖关系的排列：每一步选择 (priority, 任务下标) 最小的可选任务
func PriorityOrder(p *domain.Project, priority []domain.TimeStamp) ([]domain.TaskID, error) {
	if len(priority) != len(p.Tasks) {
		return nil, fmt.Errorf("优先级长度为 %d，任务数为 %d: %w", len(priority), len(p.Tasks), domain.ErrGenotypeMismatch)
	}

	succ, inDegree := successors(p)
	eligible := make([]domain.TaskID, 0, len(p.Tasks))
	for id := range p.Tasks {
		if inDegree[id] == 0 {
			eligible = append(eligible, id)
		}
	}

	order := make([]domain.TaskID, 0, len(p.Tasks))
	for len(order) < len(p.Tasks) {
		if len(eligible) == 0 {
			return nil, fmt.Errorf("排好 %d 个任务后没有可选的任务: %w", len(order), domain.ErrCyclicDependencies)
		}

		best := 0
		for i := 1; i < len(eligible); i++ {
			a, b := eligible[i], eligible[best]
			if priority[a] < priority[b] || (priority[a] == priority[b] && a < b) {
				best = i
			}
		}
		choice := eligible[best]
		eligible[best] = eligible[len(eligible)-1]
		eligible = eligible[:len(eligible)-1]
		order = append(order, choice)

		for _, s := range succ[choice] {
			inDegree[s]--
			if inDegree[s] == 0 {
				eligible = append(eligible, s)
			}
		}
	}

	return order, nil
}

// checkOrdering 确认 order 是任务的一个排列，并且每个任务都排在它的依赖之后
func checkOrdering(p *domain.Project, order []domain.TaskID) error {
	if len(order) != len(p.Tasks) {
		return fmt.Errorf("排列长度为 %d，任务数为 %d: %w", len(order), len(p.Tasks), domain.ErrInvalidOrdering)
	}

	position := make([]int, len(p.Tasks))
	for i := range position {
		position[i] = -1
	}
	for i, id := range order {
		if id < 0 || id >= len(p.Tasks) {
			return &domain.DanglingReferenceError{Kind: "task", ID: id}
		}
		if position[id] >= 0 {
			return fmt.Errorf("任务 %d 出现了两次: %w", id, domain.ErrInvalidOrdering)
		}
		position[id] = i
	}

	for id, task := range p.Tasks {
		for _, dep := range task.Deps {
			if position[dep] > position[id] {
				return fmt.Errorf("任务 %d 排在它的依赖 %d 之前: %w", id, dep, domain.ErrInvalidOrdering)
			}
		}
	}
	return nil
}

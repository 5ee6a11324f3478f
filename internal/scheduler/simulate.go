package scheduler

import (
	"container/heap"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

// Fragment 是某个任务在单个资源上的一段占用
type Fragment struct {
	Task     domain.TaskID    `json:"task"`
	Quantity domain.Quantity  `json:"quantity"`
	Duration domain.Duration  `json:"duration"`
	Start    domain.TimeStamp `json:"start"`
	End      domain.TimeStamp `json:"end"`
}

// Simulator 把单个资源看成一条流水线：todo 中的片段按提交顺序开始，不会越过排在前面的片段
type Simulator struct {
	capacity   domain.Quantity
	available  domain.Quantity
	now        domain.TimeStamp
	todo       []Fragment
	inProgress fragmentHeap
	done       []Fragment
}

func NewSimulator(capacity domain.Quantity) *Simulator {
	return &Simulator{
		capacity:  capacity,
		available: capacity,
	}
}

func (s *Simulator) Now() domain.TimeStamp {
	return s.now
}

func (s *Simulator) Available() domain.Quantity {
	return s.available
}

func (s *Simulator) Done() []Fragment {
	return s.done
}

func (s *Simulator) InProgress() int {
	return s.inProgress.Len()
}

func (s *Simulator) Pending() int {
	return len(s.todo)
}

// Submit 把片段加入 todo 队列，超过容量的片段永远无法开始，因此直接拒绝
func (s *Simulator) Submit(f Fragment) error {
	if f.Quantity > s.capacity || f.Quantity < 0 {
		return &domain.InfeasibleRequestError{Quantity: f.Quantity, Capacity: s.capacity}
	}
	s.todo = append(s.todo, f)
	return nil
}

// NextTimeForCapacity 推进时钟，直到至少有 q 个单位空闲并且 todo 队首无法再开始
func (s *Simulator) NextTimeForCapacity(q domain.Quantity) (domain.TimeStamp, error) {
	if q > s.capacity || q < 0 {
		return 0, &domain.InfeasibleRequestError{Quantity: q, Capacity: s.capacity}
	}

	for {
		// 能开始的片段立即开始
		for len(s.todo) > 0 && s.todo[0].Quantity <= s.available {
			f := s.todo[0]
			s.todo = s.todo[1:]
			f.Start = s.now
			f.End = s.now + f.Duration
			s.available -= f.Quantity
			heap.Push(&s.inProgress, f)
		}

		if s.available >= q {
			return s.now, nil
		}

		// 容量不足，结束最早完成的片段
		f := heap.Pop(&s.inProgress).(Fragment)
		s.available += f.Quantity
		if f.End > s.now {
			s.now = f.End
		}
		s.done = append(s.done, f)

		// 同一时刻结束的片段一起归还
		for s.inProgress.Len() > 0 && s.inProgress[0].End <= s.now {
			f := heap.Pop(&s.inProgress).(Fragment)
			s.available += f.Quantity
			s.done = append(s.done, f)
		}
	}
}

// Drain 运行到所有片段都完成，返回最后的完成时刻
func (s *Simulator) Drain() domain.TimeStamp {
	// 请求全部容量会让 todo 中的片段全部开始，并结束所有占用容量的片段
	if _, err := s.NextTimeForCapacity(s.capacity); err != nil {
		return s.now
	}

	// 剩下的只有数量为零的片段
	for s.inProgress.Len() > 0 {
		f := heap.Pop(&s.inProgress).(Fragment)
		if f.End > s.now {
			s.now = f.End
		}
		s.done = append(s.done, f)
	}
	return s.now
}

// fragmentHeap 按结束时间排序的小根堆
type fragmentHeap []Fragment

func (h fragmentHeap) Len() int { return len(h) }

func (h fragmentHeap) Less(i, j int) bool {
	if h[i].End != h[j].End {
		return h[i].End < h[j].End
	}
	return h[i].Task < h[j].Task
}

func (h fragmentHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *fragmentHeap) Push(x any) { *h = append(*h, x.(Fragment)) }

func (h *fragmentHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

package scheduler

import (
	"fmt"
	"sort"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

// event 表示某一时刻资源占用量的变化：预留开始时为 +q，结束时为 -q
type event struct {
	time  domain.TimeStamp
	delta domain.Quantity
}

// Timeline 记录单个资源上已经提交的预留，预留区间为左闭右开 [start, start+d)
type Timeline struct {
	capacity domain.Quantity
	events   []event // 按时间升序，同一时刻负增量在前
}

func NewTimeline(capacity domain.Quantity) *Timeline {
	return &Timeline{capacity: capacity}
}

func (tl *Timeline) Capacity() domain.Quantity {
	return tl.capacity
}

// Usage 返回时刻 t 的占用量
func (tl *Timeline) Usage(t domain.TimeStamp) domain.Quantity {
	var use domain.Quantity
	for _, e := range tl.events {
		if e.time > t {
			break
		}
		use += e.delta
	}
	return use
}

func (tl *Timeline) Free(t domain.TimeStamp) domain.Quantity {
	return tl.capacity - tl.Usage(t)
}

// EarliestFit 返回不早于 earliest 的最小时刻 t，使得 [t, t+d) 内空闲量始终不小于 q
func (tl *Timeline) EarliestFit(earliest domain.TimeStamp, q domain.Quantity, d domain.Duration) (domain.TimeStamp, error) {
	if q < 0 || d < 0 {
		return 0, fmt.Errorf("请求数量 %d 或时长 %d 为负: %w", q, d, domain.ErrInfeasibleRequest)
	}
	if q > tl.capacity {
		return 0, &domain.InfeasibleRequestError{Quantity: q, Capacity: tl.capacity}
	}
	if q == 0 {
		return earliest, nil
	}

	// 先累计 earliest 及之前的所有事件，得到 earliest 处的占用量
	i := 0
	var use domain.Quantity
	for ; i < len(tl.events) && tl.events[i].time <= earliest; i++ {
		use += tl.events[i].delta
	}

	// 依次扫描每一段占用量恒定的区间 [segStart, 下一个事件时刻)
	segStart := earliest
	candidate := domain.TimeStamp(-1)
	for {
		fits := tl.capacity-use >= q
		if fits && candidate < 0 {
			candidate = segStart
		}
		if !fits {
			candidate = -1
		}

		if i >= len(tl.events) {
			// 之后不再有事件，尾部一直空闲
			if candidate < 0 {
				candidate = segStart
			}
			return candidate, nil
		}

		next := tl.events[i].time
		if candidate >= 0 && next-candidate >= d {
			return candidate, nil
		}

		// 同一时刻的事件一起处理
		for ; i < len(tl.events) && tl.events[i].time == next; i++ {
			use += tl.events[i].delta
		}
		segStart = next
	}
}

// Reserve 提交一次预留，如果会超出容量则拒绝
func (tl *Timeline) Reserve(start domain.TimeStamp, q domain.Quantity, d domain.Duration) error {
	if q == 0 || d == 0 {
		return nil
	}
	fit, err := tl.EarliestFit(start, q, d)
	if err != nil {
		return err
	}
	if fit != start {
		return fmt.Errorf("在时刻 %d 预留 %d 个单位会超出容量 %d: %w", start, q, tl.capacity, domain.ErrInfeasibleRequest)
	}

	tl.insert(event{time: start, delta: q})
	tl.insert(event{time: start + d, delta: -q})
	return nil
}

func (tl *Timeline) insert(e event) {
	idx := sort.Search(len(tl.events), func(i int) bool {
		other := tl.events[i]
		if other.time != e.time {
			return other.time > e.time
		}
		return other.delta > e.delta
	})
	tl.events = append(tl.events, event{})
	copy(tl.events[idx+1:], tl.events[idx:])
	tl.events[idx] = e
}

// Timelines 是一次放置过程中所有资源的时间线，按资源下标索引
type Timelines []*Timeline

func NewTimelines(p *domain.Project) Timelines {
	tls := make(Timelines, len(p.Resources))
	for i, res := range p.Resources {
		tls[i] = NewTimeline(res.Quantity)
	}
	return tls
}

// EarliestStart 对多个资源做不动点迭代：取各资源最早可行时刻的最大值，再以它为起点重新查询，直到不再推进
func (tls Timelines) EarliestStart(earliest domain.TimeStamp, demand []domain.ModeRequirement, d domain.Duration) (domain.TimeStamp, error) {
	t := earliest
	for {
		advanced := false
		for _, req := range demand {
			if req.ID < 0 || req.ID >= len(tls) {
				return 0, &domain.DanglingReferenceError{Kind: "resource", ID: req.ID}
			}
			fit, err := tls[req.ID].EarliestFit(t, req.Quantity, d)
			if err != nil {
				return 0, fmt.Errorf("资源 %d: %w", req.ID, err)
			}
			if fit > t {
				t = fit
				advanced = true
			}
		}
		if !advanced {
			return t, nil
		}
	}
}

// Commit 在所有涉及的资源上提交预留
func (tls Timelines) Commit(start domain.TimeStamp, demand []domain.ModeRequirement, d domain.Duration) error {
	for _, req := range demand {
		if err := tls[req.ID].Reserve(start, req.Quantity, d); err != nil {
			return fmt.Errorf("资源 %d: %w", req.ID, err)
		}
	}
	return nil
}

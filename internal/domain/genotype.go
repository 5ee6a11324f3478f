package domain

import "slices"

// Nucleotide 为某个任务选定执行模式和开始时间
type Nucleotide struct {
	Task        TaskID    `json:"task" yaml:"task"`
	Mode        ModeID    `json:"mode" yaml:"mode"`
	ReleaseTime TimeStamp `json:"release_time" yaml:"release_time"`
}

// Genotype 按任务下标升序排列，每个任务恰好一个 Nucleotide
type Genotype []Nucleotide

func (g Genotype) Clone() Genotype {
	if g == nil {
		return nil
	}
	return slices.Clone(g)
}

// Canonical 判断是否按任务下标 0..n-1 排列
func (g Genotype) Canonical() bool {
	for i, n := range g {
		if n.Task != i {
			return false
		}
	}
	return true
}

func (g Genotype) Modes() []ModeID {
	modes := make([]ModeID, len(g))
	for i, n := range g {
		modes[i] = n.Mode
	}
	return modes
}

func (g Genotype) ReleaseTimes() []TimeStamp {
	times := make([]TimeStamp, len(g))
	for i, n := range g {
		times[i] = n.ReleaseTime
	}
	return times
}

func (g Genotype) Equal(other Genotype) bool {
	return slices.Equal(g, other)
}

// Schedule 是项目和基因型的组合
type Schedule struct {
	Project  *Project `json:"project" yaml:"project"`
	Genotype Genotype `json:"genotype" yaml:"genotype"`
}

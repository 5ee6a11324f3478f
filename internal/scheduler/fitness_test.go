package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
)

func TestMakespan(t *testing.T) {
	p := &domain.Project{
		Resources: resources(1),
		Tasks: []domain.Task{
			task(nil, mode(4), mode(1)),
			task(nil, mode(2)),
		},
	}

	s := &domain.Schedule{Project: p, Genotype: domain.Genotype{
		{Task: 0, Mode: 1, ReleaseTime: 6},
		{Task: 1, Mode: 0, ReleaseTime: 3},
	}}
	assert.Equal(t, domain.TimeStamp(7), Makespan(s))
	assert.Equal(t, Fitness{7}, Evaluate(s))

	assert.Equal(t, domain.TimeStamp(0), Makespan(&domain.Schedule{Project: &domain.Project{}}))
}

func TestFitness_Compare(t *testing.T) {
	assert.True(t, Fitness{3}.Less(Fitness{4}))
	assert.False(t, Fitness{4}.Less(Fitness{4}))
	assert.True(t, Fitness{4, 1}.Less(Fitness{4, 2}))

	assert.True(t, Fitness{3, 5}.Dominates(Fitness{4, 5}))
	assert.False(t, Fitness{3, 6}.Dominates(Fitness{4, 5}))
	assert.False(t, Fitness{4, 5}.Dominates(Fitness{4, 5}))
	assert.False(t, Fitness{1}.Dominates(Fitness{2, 2}))
}

func TestCheck(t *testing.T) {
	p := &domain.Project{
		Resources: resources(1),
		Tasks: []domain.Task{
			task(nil, mode(1, req(0, 1))),
			task([]domain.TaskID{0}, mode(1, req(0, 1))),
		},
	}

	report, err := Check(&domain.Schedule{Project: p, Genotype: domain.Genotype{
		{Task: 0, Mode: 0, ReleaseTime: 0},
		{Task: 1, Mode: 0, ReleaseTime: 0},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.PrecedenceViolations)
	assert.Equal(t, int64(1), report.Overload)
	assert.False(t, report.Feasible())

	report, err = Check(&domain.Schedule{Project: p, Genotype: domain.Genotype{
		{Task: 0, Mode: 0, ReleaseTime: 0},
		{Task: 1, Mode: 0, ReleaseTime: 1},
	}})
	require.NoError(t, err)
	assert.True(t, report.Feasible())

	_, err = Check(&domain.Schedule{Project: p, Genotype: domain.Genotype{
		{Task: 1, Mode: 0, ReleaseTime: 1},
		{Task: 0, Mode: 0, ReleaseTime: 0},
	}})
	require.ErrorIs(t, err, domain.ErrGenotypeMismatch)
}

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/document"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
)

const projectJSON = `{
	"project/resources": [{"resource/name": "r", "resource/cost": 0, "resource/quantity": 2}],
	"project/tasks": [
		{"task/deps": [], "task/modes": [{"mode/duration": 3, "mode/requirements": [{"req/id": 0, "req/quant": 2}]}]},
		{"task/deps": [], "task/modes": [{"mode/duration": 2, "mode/requirements": [{"req/id": 0, "req/quant": 1}]}]},
		{"task/deps": [0, 1], "task/modes": [
			{"mode/duration": 4, "mode/requirements": [{"req/id": 0, "req/quant": 1}]},
			{"mode/duration": 1, "mode/requirements": [{"req/id": 0, "req/quant": 2}]}
		]}
	]
}`

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand("test")
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestInit(t *testing.T) {
	out, _, err := execute(t, projectJSON, "init", "--seed", "5")
	require.NoError(t, err)

	s, err := document.LoadSchedule(strings.NewReader(out), document.FormatJSON)
	require.NoError(t, err)
	require.Len(t, s.Genotype, 3)

	report, err := scheduler.Check(s)
	require.NoError(t, err)
	assert.True(t, report.Feasible())

	// 相同的 seed 得到相同的排程
	again, _, err := execute(t, projectJSON, "init", "--seed", "5")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestInit_YAML(t *testing.T) {
	p, err := document.LoadProjectBytes([]byte(projectJSON), document.FormatJSON)
	require.NoError(t, err)
	var in bytes.Buffer
	require.NoError(t, document.EncodeProject(&in, document.FormatYAML, p))

	out, _, err := execute(t, in.String(), "init", "--format", "yaml", "--strategy", "shortest")
	require.NoError(t, err)

	s, err := document.LoadSchedule(strings.NewReader(out), document.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Genotype[2].Mode)
}

func TestInit_Errors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		err   error
	}{
		{"malformed", `{`, []string{"init"}, domain.ErrMalformedDocument},
		{"unknown format", projectJSON, []string{"init", "--format", "toml"}, domain.ErrUnsupportedFormat},
		{"unknown strategy", projectJSON, []string{"init", "--strategy", "fastest"}, domain.ErrUnknownModeStrategy},
		{
			"cyclic",
			`{"project/resources": [], "project/tasks": [
				{"task/deps": [1], "task/modes": [{"mode/duration": 1, "mode/requirements": []}]},
				{"task/deps": [0], "task/modes": [{"mode/duration": 1, "mode/requirements": []}]}]}`,
			[]string{"init"},
			domain.ErrCyclicDependencies,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.stdin, tt.args...)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestEvolve(t *testing.T) {
	out, stderr, err := execute(t, projectJSON, "evolve", "--seed", "1", "--population", "8", "--generations", "20", "--parallelism", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "makespan=")

	s, err := document.LoadSchedule(strings.NewReader(out), document.FormatJSON)
	require.NoError(t, err)

	report, err := scheduler.Check(s)
	require.NoError(t, err)
	assert.True(t, report.Feasible())

	// 任务 0 和 1 不能并行，任务 2 选短模式时最优工期为 3+2+1
	bound, err := scheduler.LowerBound(s.Project)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, scheduler.Makespan(s), bound.Value)
	assert.Equal(t, domain.TimeStamp(6), scheduler.Makespan(s))
}

func TestEvolve_InvalidParameters(t *testing.T) {
	_, _, err := execute(t, projectJSON, "evolve", "--population", "2", "--elite", "2", "-q")
	require.ErrorIs(t, err, scheduler.ErrInvalidParameters)
}

func TestToken(t *testing.T) {
	out, _, err := execute(t, "", "token", "--secret", "secret", "--subject", "alice")
	require.NoError(t, err)

	claims, err := utils.ParseToken("secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "operator", claims.Role)
}

func TestToken_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, _, err := execute(t, "", "token")
	require.Error(t, err)
}

package seed

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/repository"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
)

//go:embed data/sample.csv
var sampleCSV []byte

const (
	SampleProjectName        = "样例项目：小型建筑工程"
	SampleProjectDescription = "十道工序，三种资源，部分工序可以用更多人手换取更短的工期"
)

var csvHeader = []string{"task", "mode", "duration", "deps"}

func SampleProject() (*domain.Project, error) {
	return LoadCSV(bytes.NewReader(sampleCSV))
}

// LoadCSV 读取表格形式的项目：表头之后的第一行是各资源的总量，之后每行是一个任务的一种模式，
// 依赖用分号分隔，只读取每个任务第一种模式所在行的依赖
func LoadCSV(r io.Reader) (*domain.Project, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return nil, &domain.MalformedDocumentError{Reason: "读取表头失败", Err: err}
	}
	if len(headers) < len(csvHeader) || !slices.Equal(headers[:len(csvHeader)], csvHeader) {
		return nil, &domain.MalformedDocumentError{Reason: fmt.Sprintf("表头必须以 %s 开头", strings.Join(csvHeader, ","))}
	}

	p := &domain.Project{
		Resources: make([]domain.Resource, 0, len(headers)-len(csvHeader)),
		Tasks:     []domain.Task{},
	}

	// 资源总量
	capacity, err := reader.Read()
	if err != nil {
		return nil, &domain.MalformedDocumentError{Reason: "读取资源总量失败", Err: err}
	}
	if capacity[0] != "capacity" {
		return nil, &domain.MalformedDocumentError{Reason: "第二行必须是资源总量"}
	}
	for i, name := range headers[len(csvHeader):] {
		quantity, err := strconv.ParseInt(capacity[len(csvHeader)+i], 10, 64)
		if err != nil {
			return nil, &domain.MalformedDocumentError{Reason: fmt.Sprintf("资源 %s 的总量", name), Err: err}
		}
		p.Resources = append(p.Resources, domain.Resource{Name: name, Quantity: quantity})
	}

	for line := 3; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &domain.MalformedDocumentError{Reason: fmt.Sprintf("读取第 %d 行失败", line), Err: err}
		}

		ints, err := parseInts(row[:3])
		if err != nil {
			return nil, &domain.MalformedDocumentError{Reason: fmt.Sprintf("第 %d 行", line), Err: err}
		}
		taskID, modeID, duration := int(ints[0]), int(ints[1]), ints[2]

		switch {
		case taskID == len(p.Tasks) && modeID == 0:
			deps, err := parseDeps(row[3])
			if err != nil {
				return nil, &domain.MalformedDocumentError{Reason: fmt.Sprintf("第 %d 行的依赖", line), Err: err}
			}
			p.Tasks = append(p.Tasks, domain.Task{Deps: deps, Modes: []domain.Mode{}})
		case len(p.Tasks) > 0 && taskID == len(p.Tasks)-1 && modeID == len(p.Tasks[taskID].Modes):
		default:
			return nil, &domain.MalformedDocumentError{Reason: fmt.Sprintf("第 %d 行的任务或模式编号不连续", line)}
		}

		quantities, err := parseInts(row[len(csvHeader):])
		if err != nil {
			return nil, &domain.MalformedDocumentError{Reason: fmt.Sprintf("第 %d 行的资源需求", line), Err: err}
		}
		mode := domain.Mode{Duration: duration, Requirements: []domain.ModeRequirement{}}
		for resourceID, quantity := range quantities {
			if quantity > 0 {
				mode.Requirements = append(mode.Requirements, domain.ModeRequirement{ID: resourceID, Quantity: quantity})
			}
		}
		p.Tasks[taskID].Modes = append(p.Tasks[taskID].Modes, mode)
	}

	if err := utils.ValidateProject(p); err != nil {
		return nil, err
	}

	return p, nil
}

func parseInts(fields []string) ([]int64, error) {
	values := make([]int64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseDeps(field string) ([]domain.TaskID, error) {
	deps := []domain.TaskID{}
	for _, s := range strings.Split(field, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		dep, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func insertProject(r *repository.Repository, name string, description string, p *domain.Project) (*domain.ProjectRecord, error) {
	fingerprint, err := utils.ProjectFingerprint(p)
	if err != nil {
		return nil, err
	}

	rec := &domain.ProjectRecord{
		Name:        name,
		Description: description,
		Fingerprint: fingerprint,
		Project:     p,
	}
	if err := r.CreateProject(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func SeedSampleProject(r *repository.Repository) (*domain.ProjectRecord, error) {
	p, err := SampleProject()
	if err != nil {
		return nil, err
	}
	return insertProject(r, SampleProjectName, SampleProjectDescription, p)
}

// SeedRandomProjects 插入 n 个随机项目，返回成功插入的记录
func SeedRandomProjects(r *repository.Repository, rng *rand.Rand, n int, options utils.RandomProjectOptions) ([]*domain.ProjectRecord, error) {
	records := make([]*domain.ProjectRecord, 0, n)
	var errs []error
	for range n {
		p := utils.GenerateRandomProject(rng, options)
		name := fmt.Sprintf("随机项目 %s", utils.GenerateRandomID(rng, 3, 4))
		description := fmt.Sprintf("%d 个任务，%d 种资源", p.NumTasks(), p.NumResources())

		rec, err := insertProject(r, name, description, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}

	return records, errors.Join(errs...)
}

// SeedSchedules 为已有的项目插入 n 个不同 seed 的贪心排程
func SeedSchedules(r *repository.Repository, rng *rand.Rand, projectID int64, n int, strategy string) ([]*domain.ScheduleRecord, error) {
	rec, err := r.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}

	selector, err := scheduler.LookupModeSelector(strategy)
	if err != nil {
		return nil, err
	}
	if strategy == "" {
		strategy = scheduler.StrategyRandom
	}

	records := make([]*domain.ScheduleRecord, 0, n)
	var errs []error
	for range n {
		seed := rng.Int63()
		schedule, err := scheduler.NewGreedySchedule(rec.Project, rand.New(rand.NewSource(seed)), selector)
		if err != nil {
			return records, err
		}

		scheduleRecord := &domain.ScheduleRecord{
			ProjectID: projectID,
			Strategy:  strategy,
			Seed:      seed,
			Makespan:  scheduler.Makespan(schedule),
			Genotype:  schedule.Genotype,
		}
		if err := r.InsertSchedule(scheduleRecord); err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, scheduleRecord)
	}

	return records, errors.Join(errs...)
}

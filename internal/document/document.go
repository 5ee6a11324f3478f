// Package document 负责项目文档和排程文档的读取与输出，支持 JSON 和 YAML 两种格式
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/utils"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, s)
	}
}

// FormatFromContentType 根据 HTTP 的 Content-Type 判断格式，无法识别时按 JSON 处理
func FormatFromContentType(contentType string) Format {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") || strings.Contains(ct, "yml") {
		return FormatYAML
	}
	return FormatJSON
}

func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// decode 把格式错误统一包装成 MalformedDocumentError
func decode(r io.Reader, f Format, v any) error {
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return &domain.MalformedDocumentError{Reason: "无法解析 JSON", Err: err}
		}
		// 文档之后不允许再有其他内容
		if dec.More() {
			return &domain.MalformedDocumentError{Reason: "JSON 文档之后还有多余的内容"}
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return &domain.MalformedDocumentError{Reason: "YAML 文档为空"}
			}
			return &domain.MalformedDocumentError{Reason: "无法解析 YAML", Err: err}
		}
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, f)
	}
	return nil
}

// DecodeProject 只解析项目文档，不检查不变量
func DecodeProject(r io.Reader, f Format) (*domain.Project, error) {
	var p domain.Project
	if err := decode(r, f, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProject 解析项目文档并检查所有不变量，返回遇到的第一个错误
func LoadProject(r io.Reader, f Format) (*domain.Project, error) {
	p, err := DecodeProject(r, f)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateProject(p); err != nil {
		return nil, err
	}
	return p, nil
}

func LoadProjectBytes(data []byte, f Format) (*domain.Project, error) {
	return LoadProject(bytes.NewReader(data), f)
}

// LoadSchedule 解析排程文档，检查其中的项目以及基因型和项目是否匹配
func LoadSchedule(r io.Reader, f Format) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := decode(r, f, &s); err != nil {
		return nil, err
	}
	if s.Project == nil {
		return nil, &domain.MalformedDocumentError{Reason: "缺少 project 字段"}
	}
	if err := utils.ValidateProject(s.Project); err != nil {
		return nil, err
	}
	if err := utils.ValidateGenotype(s.Project, s.Genotype); err != nil {
		return nil, err
	}
	return &s, nil
}

func encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, f)
	}
}

func EncodeProject(w io.Writer, f Format, p *domain.Project) error {
	return encode(w, f, normalize(p))
}

func EncodeSchedule(w io.Writer, f Format, s *domain.Schedule) error {
	genotype := s.Genotype
	if genotype == nil {
		genotype = domain.Genotype{}
	}
	return encode(w, f, &domain.Schedule{Project: normalize(s.Project), Genotype: genotype})
}

// normalize 把空切片输出为 [] 而不是 null
func normalize(p *domain.Project) *domain.Project {
	if p == nil {
		return nil
	}

	out := &domain.Project{
		Resources: make([]domain.Resource, len(p.Resources)),
		Tasks:     make([]domain.Task, len(p.Tasks)),
	}
	copy(out.Resources, p.Resources)
	for i, task := range p.Tasks {
		deps := task.Deps
		if deps == nil {
			deps = []domain.TaskID{}
		}
		modes := make([]domain.Mode, len(task.Modes))
		for m, mode := range task.Modes {
			reqs := mode.Requirements
			if reqs == nil {
				reqs = []domain.ModeRequirement{}
			}
			modes[m] = domain.Mode{Duration: mode.Duration, Requirements: reqs}
		}
		out.Tasks[i] = domain.Task{Deps: deps, Modes: modes}
	}
	return out
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedDocument   = errors.New("文档格式错误")
	ErrDanglingReference   = errors.New("引用不存在")
	ErrCyclicDependencies  = errors.New("任务依赖存在环")
	ErrEmptyModeSet        = errors.New("任务没有可用的模式")
	ErrNonPositiveDuration = errors.New("模式的持续时间必须为正")
	ErrInfeasibleMode      = errors.New("模式的资源需求超过资源总量")
	ErrInfeasibleRequest   = errors.New("资源请求无法满足")
	ErrInvalidOrdering     = errors.New("任务顺序不是满足依赖关系的排列")
	ErrGenotypeMismatch    = errors.New("基因型与项目不匹配")

	ErrProjectNotFound      = errors.New("项目不存在")
	ErrScheduleNotFound     = errors.New("排程不存在")
	ErrEvolutionJobNotFound = errors.New("演化任务不存在")
	ErrUnsupportedFormat    = errors.New("不支持的文档格式")
	ErrUnknownModeStrategy  = errors.New("未知的模式选择策略")
)

type MalformedDocumentError struct {
	Reason string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedDocument, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedDocument, e.Reason)
}

func (e *MalformedDocumentError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedDocument, e.Err}
	}
	return []error{ErrMalformedDocument}
}

// DanglingReferenceError 中的 Kind 取值为 "task"、"resource" 或 "mode"
type DanglingReferenceError struct {
	Kind string
	ID   int
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s: %s %d", ErrDanglingReference, e.Kind, e.ID)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

type EmptyModeSetError struct {
	Task TaskID
}

func (e *EmptyModeSetError) Error() string {
	return fmt.Sprintf("%s: 任务 %d", ErrEmptyModeSet, e.Task)
}

func (e *EmptyModeSetError) Unwrap() error { return ErrEmptyModeSet }

type NonPositiveDurationError struct {
	Task TaskID
	Mode ModeID
}

func (e *NonPositiveDurationError) Error() string {
	return fmt.Sprintf("%s: 任务 %d 模式 %d", ErrNonPositiveDuration, e.Task, e.Mode)
}

func (e *NonPositiveDurationError) Unwrap() error { return ErrNonPositiveDuration }

type InfeasibleModeError struct {
	Task TaskID
	Mode ModeID
}

func (e *InfeasibleModeError) Error() string {
	return fmt.Sprintf("%s: 任务 %d 模式 %d", ErrInfeasibleMode, e.Task, e.Mode)
}

func (e *InfeasibleModeError) Unwrap() error { return ErrInfeasibleMode }

type InfeasibleRequestError struct {
	Quantity Quantity
	Capacity Quantity
}

func (e *InfeasibleRequestError) Error() string {
	return fmt.Sprintf("%s: 请求 %d，容量 %d", ErrInfeasibleRequest, e.Quantity, e.Capacity)
}

func (e *InfeasibleRequestError) Unwrap() error { return ErrInfeasibleRequest }

package progress

import "errors"

var (
	// ErrValidation 输入不合法，在任何状态变化之前同步拒绝
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 分类或进度表不存在
	ErrNotFound = errors.New("not found")
	// ErrPersistence 外部存储读写失败，调用方可以重试
	ErrPersistence = errors.New("persistence failed")
	// ErrConcurrencyGuard 变更被并发保护吞掉，不应作为错误展示给用户
	ErrConcurrencyGuard = errors.New("mutation suppressed")

	// ErrMutationInFlight 同一分类已有变更在途或仍处于冷却期
	ErrMutationInFlight = &guardError{reason: "mutation in flight"}
	// ErrNoChange 已到达边界，钳制后的增量为 0
	ErrNoChange = &guardError{reason: "value already at bound"}
)

type guardError struct {
	reason string
}

func (e *guardError) Error() string { return e.reason }

func (e *guardError) Unwrap() error { return ErrConcurrencyGuard }

// IsSilent 判断错误是否只是并发保护的结果
func IsSilent(err error) bool {
	return errors.Is(err, ErrConcurrencyGuard)
}

package probe

import (
	"errors"
	"fmt"
)

// Kind 对失败进行分类，决定日志与退出行为
type Kind int

const (
	KindUnknown     Kind = iota
	KindConfig           // 配置缺失或非法
	KindCredentials      // 凭证解析失败
	KindTransfer         // 提交或下载失败
	KindVerify           // 下载结果校验失败
	KindIO               // 本地文件系统错误
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindCredentials:
		return "credentials"
	case KindTransfer:
		return "transfer"
	case KindVerify:
		return "verify"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error 是 probe 各步骤返回的错误
type Error struct {
	Kind Kind
	Op   string // 人类可读的步骤描述，例如 "failed to write object"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap 给 err 打上分类；err 为 nil 时返回 nil
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 返回错误链中第一个 *Error 的分类
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

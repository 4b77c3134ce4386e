package trade

import (
	"fmt"
	"strings"
)

// Status 表示交易在远端服务中的生命周期状态。
type Status int32

const (
	StatusUnsigned  Status = 0
	StatusSigned    Status = 1
	StatusConfirmed Status = 2
	StatusSettled   Status = 3
	StatusSlashed   Status = 4
	StatusCancelled Status = 5
	StatusFailed    Status = 6 // 系统错误导致失败
)

var statusNames = map[Status]string{
	StatusUnsigned:  "unsigned",
	StatusSigned:    "signed",
	StatusConfirmed: "confirmed",
	StatusSettled:   "settled",
	StatusSlashed:   "slashed",
	StatusCancelled: "cancelled",
	StatusFailed:    "failed",
}

// AllStatuses 按线上编码顺序返回全部状态。
func AllStatuses() []Status {
	return []Status{
		StatusUnsigned,
		StatusSigned,
		StatusConfirmed,
		StatusSettled,
		StatusSlashed,
		StatusCancelled,
		StatusFailed,
	}
}

// StatusFromCode 将线上整数编码转换为 Status，未知编码一律视为 Failed。
func StatusFromCode(code int32) Status {
	s := Status(code)
	if _, ok := statusNames[s]; !ok {
		return StatusFailed
	}
	return s
}

// Code 返回线上编码。
func (s Status) Code() int32 {
	return int32(s)
}

// IsTerminal 判断该状态之后是否不再发生迁移。
func (s Status) IsTerminal() bool {
	switch s {
	case StatusUnsigned, StatusSigned, StatusConfirmed:
		return false
	default:
		return true
	}
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// ParseStatus 解析状态名称，大小写不敏感。
func ParseStatus(name string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for s, n := range statusNames {
		if n == key {
			return s, nil
		}
	}
	return StatusFailed, fmt.Errorf("trade: 未知状态 %q", name)
}

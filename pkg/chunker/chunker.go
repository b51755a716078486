package chunker

import (
	"fmt"
	"math"
)

// 默认参数针对大文件上传到对象存储的场景 (单位: 字节)
// 块太小会导致请求数爆炸，块太大则失去并发与去重的意义
const (
	DefaultMinSize = 2 * 1024 * 1024  // 2MB
	DefaultAvgSize = 8 * 1024 * 1024  // 8MB
	DefaultMaxSize = 32 * 1024 * 1024 // 32MB
	NormLevel      = 2
)

// Options 控制块大小的范围
type Options struct {
	MinSize int
	AvgSize int
	MaxSize int
}

func DefaultOptions() Options {
	return Options{MinSize: DefaultMinSize, AvgSize: DefaultAvgSize, MaxSize: DefaultMaxSize}
}

func (o Options) validate() error {
	if o.MinSize <= 0 || o.AvgSize <= o.MinSize || o.MaxSize <= o.AvgSize {
		return fmt.Errorf("invalid chunk sizes: require 0 < min(%d) < avg(%d) < max(%d)", o.MinSize, o.AvgSize, o.MaxSize)
	}
	return nil
}

// Chunker 是一个无状态的 FastCDC 切分工具
type Chunker struct {
	opts  Options
	maskS uint64
	maskL uint64
}

func NewChunker(opts Options) (*Chunker, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	bits := int(math.Round(math.Log2(float64(opts.AvgSize))))
	return &Chunker{
		opts:  opts,
		maskS: uint64(1<<(bits+NormLevel)) - 1,
		maskL: uint64(1<<(bits-NormLevel)) - 1,
	}, nil
}

// MaxSize 返回单个块的上限，调用方据此分配缓冲区
func (c *Chunker) MaxSize() int { return c.opts.MaxSize }

// Next 返回 data 中下一个块的长度
// eof=false 时，如果数据不足以确定切点 (不足 MaxSize 且没找到切点)，返回 0，调用方需要补充数据
// eof=true 时，剩余数据总会被切出来 (最后一块可能小于 MinSize)
func (c *Chunker) Next(data []byte, eof bool) int {
	n := len(data)
	if n == 0 {
		return 0
	}
	if n <= c.opts.MinSize {
		if eof {
			return n
		}
		return 0
	}

	fp := uint64(0)
	idx := c.opts.MinSize
	normLimit := min(c.opts.AvgSize, n)
	maxLimit := min(c.opts.MaxSize, n)

	// A. 归一化区域 (严掩码)
	for ; idx < normLimit; idx++ {
		fp = (fp << 1) + gearTable[data[idx]]
		if fp&c.maskS == 0 {
			return idx + 1
		}
	}

	// B. 普通区域 (宽掩码)
	for ; idx < maxLimit; idx++ {
		fp = (fp << 1) + gearTable[data[idx]]
		if fp&c.maskL == 0 {
			return idx + 1
		}
	}

	// C. 强制切分：要么到达 MaxSize，要么是文件末尾
	if maxLimit == c.opts.MaxSize || eof {
		return maxLimit
	}
	return 0
}

// Cut 将一段完整数据切分成一系列切点 (每个块的结束 offset)
// 最后一个切点总是 len(data)
func (c *Chunker) Cut(data []byte) []int {
	var cutPoints []int
	offset := 0
	for offset < len(data) {
		offset += c.Next(data[offset:], true)
		cutPoints = append(cutPoints, offset)
	}
	return cutPoints
}

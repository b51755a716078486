package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ocflprobe/pkg/types"
)

// ErrInputClosed 表示输入在收集完配置之前就结束了
var ErrInputClosed = errors.New("input closed before configuration was complete")

// Provider 提供一次运行所需的连接参数
type Provider interface {
	Connection(ctx context.Context) (types.Connection, error)
}

// Static 直接返回给定的连接参数 (来自配置文件、环境变量或测试)
type Static types.Connection

func (s Static) Connection(context.Context) (types.Connection, error) {
	conn := types.Connection(s).WithDefaults()
	if err := conn.Validate(); err != nil {
		return types.Connection{}, err
	}
	return conn, nil
}

// Prompter 逐行交互式地询问连接参数
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Connection 依次询问 profile、region、endpoint、bucket、prefix
// bucket 为空时会一直重新询问，直到输入结束
func (p *Prompter) Connection(ctx context.Context) (types.Connection, error) {
	var conn types.Connection
	var err error

	if conn.Profile, err = p.ask(ctx, "Profile [default]: ", types.DefaultProfile); err != nil {
		return conn, err
	}
	if conn.Region, err = p.ask(ctx, "Region [us-east-2]: ", types.DefaultRegion); err != nil {
		return conn, err
	}
	if conn.Endpoint, err = p.ask(ctx, "Endpoint: ", ""); err != nil {
		return conn, err
	}
	for conn.Bucket == "" {
		if conn.Bucket, err = p.ask(ctx, "Bucket: ", ""); err != nil {
			return conn, fmt.Errorf("%w: %w", types.ErrBucketRequired, err)
		}
	}
	if conn.Prefix, err = p.ask(ctx, "Prefix: ", ""); err != nil {
		return conn, err
	}

	conn = conn.WithDefaults()
	if err := conn.Validate(); err != nil {
		return types.Connection{}, err
	}
	return conn, nil
}

func (p *Prompter) ask(ctx context.Context, label, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", ErrInputClosed
	}
	if v := strings.TrimSpace(p.in.Text()); v != "" {
		return v, nil
	}
	return def, nil
}

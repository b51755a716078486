package types

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// 连接参数的默认值
const (
	DefaultProfile = "default"
	DefaultRegion  = "us-east-2"
)

var ErrBucketRequired = errors.New("bucket is required")

// Connection 描述如何连接到远端的 Bucket
// 每次运行只创建一次，之后不可变
type Connection struct {
	Profile  string // AWS shared config profile
	Region   string
	Endpoint string // 可选，S3 兼容服务 (MinIO 等) 的地址
	Bucket   string
	Prefix   string // 可选，Bucket 内的命名空间
}

// Validate 检查必填字段以及 Endpoint 的语法
func (c Connection) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return ErrBucketRequired
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid endpoint %q: scheme must be http or https", c.Endpoint)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid endpoint %q: missing host", c.Endpoint)
		}
	}
	return nil
}

// WithDefaults 为空字段填充默认值 (Bucket 除外)
func (c Connection) WithDefaults() Connection {
	if strings.TrimSpace(c.Profile) == "" {
		c.Profile = DefaultProfile
	}
	if strings.TrimSpace(c.Region) == "" {
		c.Region = DefaultRegion
	}
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), "/")
	return c
}

func (c Connection) String() string {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = "<default>"
	}
	prefix := c.Prefix
	if prefix == "" {
		prefix = "<none>"
	}
	return fmt.Sprintf("profile=%s region=%s endpoint=%s bucket=%s prefix=%s",
		c.Profile, c.Region, endpoint, c.Bucket, prefix)
}

package s3

import (
	"context"

	"ocflprobe/pkg/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/logging"
	"github.com/sirupsen/logrus"
)

// ClientConfig 描述如何构建 S3 客户端 (传输层)
type ClientConfig struct {
	Profile  string
	Region   string
	Endpoint string // 为空时使用 AWS 默认的区域 Endpoint

	// 静态凭证，设置后优先于 Profile (CI 里连 MinIO 时用)
	AccessKeyID     string
	SecretAccessKey string

	// Debug 打开 SDK 的请求/重试日志
	Debug  bool
	Logger logrus.FieldLogger
}

// NewClient 初始化 S3 客户端
// 除了凭证解析之外不做任何网络请求，连通性在第一次使用时才会被验证
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	} else {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	if cfg.Debug && cfg.Logger != nil {
		opts = append(opts,
			config.WithClientLogMode(aws.LogRetries|aws.LogRequest),
			config.WithLogger(sdkLogger(cfg.Logger)),
		)
	}

	// 1. 加载基础配置 (Region + Credentials)
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &storage.CredentialsError{Profile: cfg.Profile, Err: err}
	}

	// 2. 立即解析一次凭证，让 Profile 问题在构建阶段暴露
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, &storage.CredentialsError{Profile: cfg.Profile, Err: err}
	}

	// 3. 创建 S3 客户端时注入 Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO 等 S3 兼容服务需要 Path Style
			// 即: http://host:9000/bucket/key
			o.UsePathStyle = true
		}
	})

	return client, nil
}

// sdkLogger 把 SDK 的日志转接到 logrus
func sdkLogger(log logrus.FieldLogger) logging.Logger {
	sdk := log.WithField("component", "aws-sdk")
	return logging.LoggerFunc(func(classification logging.Classification, format string, v ...interface{}) {
		if classification == logging.Warn {
			sdk.Warnf(format, v...)
			return
		}
		sdk.Debugf(format, v...)
	})
}

package ingester

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ocflprobe/pkg/chunker"
	"ocflprobe/pkg/core"
	"ocflprobe/pkg/storage"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency 同时在途的 Chunk 上传数
const DefaultConcurrency = 4

type Ingester struct {
	store       storage.Store
	chunker     *chunker.Chunker
	concurrency int
}

type Option func(*Ingester)

// WithConcurrency 设置并发上传数 (<=0 时使用默认值)
func WithConcurrency(n int) Option {
	return func(ing *Ingester) {
		if n > 0 {
			ing.concurrency = n
		}
	}
}

func NewIngester(store storage.Store, c *chunker.Chunker, opts ...Option) *Ingester {
	ing := &Ingester{
		store:       store,
		chunker:     c,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestFile 流式读取文件，切分并并发存储 Chunk，最后存储并返回 FileNode
// 内存占用上限约为 (concurrency + 2) * MaxSize
func (ing *Ingester) IngestFile(ctx context.Context, reader io.Reader) (*core.FileNode, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.concurrency)

	builder := core.NewFileNodeBuilder()
	buf := make([]byte, 2*ing.chunker.MaxSize())
	start, end := 0, 0
	eof := false

	for {
		// 1. 填充缓冲区
		for !eof && end < len(buf) {
			n, err := reader.Read(buf[end:])
			end += n
			if errors.Is(err, io.EOF) {
				eof = true
			} else if err != nil {
				_ = g.Wait()
				return nil, fmt.Errorf("failed to read file: %w", err)
			}
		}

		// 2. 切出所有能确定的块
		for {
			cut := ing.chunker.Next(buf[start:end], eof)
			if cut == 0 {
				break
			}
			// 缓冲区会被复用，必须拷贝
			data := make([]byte, cut)
			copy(data, buf[start:start+cut])
			start += cut

			chunk := core.NewChunk(data)
			builder.Add(chunk)

			if gctx.Err() != nil {
				return nil, waitErr(g, gctx)
			}
			g.Go(func() error {
				if err := ing.store.Put(gctx, chunk); err != nil {
					return fmt.Errorf("failed to store chunk %s: %w", chunk.ID().Short(), err)
				}
				return nil
			})
		}

		if eof && start == end {
			break
		}

		// 3. 把剩余数据挪到缓冲区头部
		end = copy(buf, buf[start:end])
		start = 0
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fileNode, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create file node: %w", err)
	}
	if err := ing.store.Put(ctx, fileNode); err != nil {
		return nil, fmt.Errorf("failed to store file node: %w", err)
	}
	return fileNode, nil
}

func waitErr(g *errgroup.Group, gctx context.Context) error {
	if err := g.Wait(); err != nil {
		return err
	}
	return gctx.Err()
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"ocflprobe/pkg/chunker"
	"ocflprobe/pkg/core"
	"ocflprobe/pkg/exporter"
	"ocflprobe/pkg/ingester"
	"ocflprobe/pkg/layout"
	"ocflprobe/pkg/refs"
	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrVersionNotFound = errors.New("version not found")
	// ErrStaleVersion 表示提交所基于的版本已经不是最新版本
	ErrStaleVersion = errors.New("object out of sync")
	ErrFixity       = exporter.ErrFixity
	// ErrDestinationExists 表示导出目录已存在且非空
	ErrDestinationExists = errors.New("destination already exists")
)

// Repository 是建立在 CAS 后端之上的版本化对象存储
// 每个对象占据 layout 算出的一个根目录，HEAD 指向最新的 Version
type Repository struct {
	backend     storage.Backend
	layout      layout.Layout
	workDir     string
	chunker     *chunker.Chunker
	concurrency int
	log         logrus.FieldLogger
}

type Option func(*config)

type config struct {
	chunkOpts   chunker.Options
	concurrency int
	log         logrus.FieldLogger
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *config) { c.log = log }
}

func WithChunkerOptions(opts chunker.Options) Option {
	return func(c *config) { c.chunkOpts = opts }
}

// WithConcurrency 控制提交时同时上传的 Chunk 数
func WithConcurrency(n int) Option {
	return func(c *config) { c.concurrency = n }
}

// New 创建 Repository。workDir 用于暂存导出中的文件，不存在会被创建
func New(backend storage.Backend, l layout.Layout, workDir string, opts ...Option) (*Repository, error) {
	cfg := config{
		chunkOpts:   chunker.DefaultOptions(),
		concurrency: ingester.DefaultConcurrency,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := chunker.NewChunker(cfg.chunkOpts)
	if err != nil {
		return nil, err
	}
	if workDir == "" {
		return nil, errors.New("work dir is required")
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	return &Repository{
		backend:     backend,
		layout:      l,
		workDir:     workDir,
		chunker:     c,
		concurrency: cfg.concurrency,
		log:         cfg.log,
	}, nil
}

// Location 返回仓库根的位置描述
func (r *Repository) Location() string { return r.backend.Location() }

// objectBackend 返回限定在对象根目录下的后端
func (r *Repository) objectBackend(id types.ObjectID) (storage.Backend, error) {
	if id == "" {
		return nil, errors.New("object id is required")
	}
	root, err := r.layout.ObjectRoot(id)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", id, err)
	}
	return r.backend.Scope(root), nil
}

// ObjectExists 判断对象是否至少有一个版本
func (r *Repository) ObjectExists(ctx context.Context, id types.ObjectID) (bool, error) {
	store, err := r.objectBackend(id)
	if err != nil {
		return false, err
	}
	_, _, err = refs.NewManager(store).GetHead(ctx)
	if errors.Is(err, refs.ErrNoHead) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("object %s: %w", id, err)
	}
	return true, nil
}

// UpdateObject 将 files (逻辑路径 -> 本地文件) 提交为对象的下一个版本
//
// ovid.Version 为 head 时总是基于最新版本提交；指定版本号时，该版本必须就是当前最新版本。
// 所有内容先写入，最后用条件写入发布 HEAD：发布之前失败的提交对读取方不可见。
func (r *Repository) UpdateObject(ctx context.Context, ovid types.ObjectVersionID, info types.VersionInfo, files map[string]string) (*core.Version, error) {
	id := ovid.ID
	store, err := r.objectBackend(id)
	if err != nil {
		return nil, err
	}
	refMgr := refs.NewManager(store)
	log := r.log.WithField("object_id", id)

	// 1. 找到父版本
	var parent *core.Version
	headHash, token, err := refMgr.GetHead(ctx)
	switch {
	case errors.Is(err, refs.ErrNoHead):
	case err != nil:
		return nil, fmt.Errorf("object %s: %w", id, err)
	default:
		parent, err = r.loadVersion(ctx, store, id, headHash)
		if err != nil {
			return nil, err
		}
	}

	current := types.VersionNum(0)
	if parent != nil {
		current = parent.Num()
	}
	if !ovid.Version.IsHead() && ovid.Version != current {
		return nil, fmt.Errorf("object %s: %w: expected %s, current is %s", id, ErrStaleVersion, ovid.Version, versionLabel(current))
	}
	next := current + 1

	// 2. 逐个文件入库
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	ing := ingester.NewIngester(store, r.chunker, ingester.WithConcurrency(r.concurrency))
	entries := make([]core.StateEntry, 0, len(paths))
	for _, logical := range paths {
		node, err := r.ingestPath(ctx, ing, files[logical])
		if err != nil {
			return nil, fmt.Errorf("object %s: failed to ingest %s: %w", id, logical, err)
		}
		log.WithFields(logrus.Fields{
			"path":   logical,
			"size":   node.TotalSize,
			"chunks": len(node.Chunks),
		}).Debug("file ingested")
		entries = append(entries, core.NewStateEntry(logical, node))
	}

	// 3. State + Version
	state, err := core.NewState(entries)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", id, err)
	}
	if err := store.Put(ctx, state); err != nil {
		return nil, fmt.Errorf("object %s: failed to store state: %w", id, err)
	}

	var parentHash types.Hash
	if parent != nil {
		parentHash = parent.ID()
	}
	version, err := core.NewVersion(id, next, state.ID(), parentHash, info)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", id, err)
	}
	if err := store.Put(ctx, version); err != nil {
		return nil, fmt.Errorf("object %s: failed to store version: %w", id, err)
	}

	// 4. 发布
	if err := refMgr.UpdateHead(ctx, version.ID(), token); err != nil {
		if errors.Is(err, refs.ErrConflict) {
			return nil, fmt.Errorf("object %s: %w: concurrent update while committing %s: %w", id, ErrStaleVersion, next, err)
		}
		return nil, fmt.Errorf("object %s: %w", id, err)
	}

	log.WithFields(logrus.Fields{
		"version": next.String(),
		"hash":    version.ID().Short(),
		"size":    state.TotalSize(),
	}).Info("version committed")
	return version, nil
}

func (r *Repository) ingestPath(ctx context.Context, ing *ingester.Ingester, localPath string) (*core.FileNode, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ing.IngestFile(ctx, f)
}

// GetObject 将对象的指定版本导出到 dest
// dest 必须不存在或者是空目录
func (r *Repository) GetObject(ctx context.Context, ovid types.ObjectVersionID, dest string) (*core.Version, error) {
	if err := checkDestination(dest); err != nil {
		return nil, fmt.Errorf("object %s: %w", ovid.ID, err)
	}

	version, state, err := r.DescribeObject(ctx, ovid)
	if err != nil {
		return nil, err
	}
	store, err := r.objectBackend(ovid.ID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("object %s: failed to create destination: %w", ovid.ID, err)
	}

	start := time.Now()
	exp := exporter.NewExporter(store, r.workDir)
	err = exp.RestoreState(ctx, state, dest, func(path string, hash types.Hash, size int64) {
		r.log.WithFields(logrus.Fields{"path": path, "size": size}).Debug("file restored")
	})
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", ovid.ID, err)
	}

	r.log.WithFields(logrus.Fields{
		"object_id": ovid.ID,
		"version":   version.Num().String(),
		"files":     len(state.Entries),
		"elapsed":   time.Since(start),
	}).Info("version exported")
	return version, nil
}

// DescribeObject 解析版本并返回它的元数据与文件清单
func (r *Repository) DescribeObject(ctx context.Context, ovid types.ObjectVersionID) (*core.Version, *core.State, error) {
	store, err := r.objectBackend(ovid.ID)
	if err != nil {
		return nil, nil, err
	}
	version, err := r.resolveVersion(ctx, store, ovid)
	if err != nil {
		return nil, nil, err
	}
	state, err := exporter.NewExporter(store, r.workDir).LoadState(ctx, version.StateCid.Hash)
	if err != nil {
		return nil, nil, fmt.Errorf("object %s: %w", ovid.ID, err)
	}
	return version, state, nil
}

// resolveVersion 从 HEAD 出发，沿父链找到目标版本
func (r *Repository) resolveVersion(ctx context.Context, store storage.Backend, ovid types.ObjectVersionID) (*core.Version, error) {
	id := ovid.ID
	headHash, _, err := refs.NewManager(store).GetHead(ctx)
	if errors.Is(err, refs.ErrNoHead) {
		return nil, fmt.Errorf("object %s: %w", id, ErrObjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", id, err)
	}

	v, err := r.loadVersion(ctx, store, id, headHash)
	if err != nil {
		return nil, err
	}
	if ovid.Version.IsHead() {
		return v, nil
	}
	if ovid.Version > v.Num() {
		return nil, fmt.Errorf("object %s: %w: %s (head is %s)", id, ErrVersionNotFound, ovid.Version, v.Num())
	}

	for v.Num() != ovid.Version {
		parent := v.Parent()
		if parent.IsZero() {
			return nil, fmt.Errorf("object %s: %w: %s", id, ErrVersionNotFound, ovid.Version)
		}
		if v, err = r.loadVersion(ctx, store, id, parent); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// loadVersion 读取 Version 并校验它的 Hash 与所属对象
func (r *Repository) loadVersion(ctx context.Context, store storage.Store, id types.ObjectID, hash types.Hash) (*core.Version, error) {
	rc, err := store.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("object %s: failed to read version %s: %w", id, hash.Short(), err)
	}
	raw, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("object %s: failed to read version %s: %w", id, hash.Short(), err)
	}
	if core.CalculateBlobHash(raw) != hash {
		return nil, fmt.Errorf("object %s: %w: version %s", id, ErrFixity, hash.Short())
	}

	var v core.Version
	if err := core.DecodeTyped(raw, core.TypeVersion, &v); err != nil {
		return nil, fmt.Errorf("object %s: %w", id, err)
	}
	if v.ObjectID != id.String() {
		return nil, fmt.Errorf("object %s: version %s belongs to %s", id, hash.Short(), v.ObjectID)
	}
	v.Seal(hash, raw)
	return &v, nil
}

func checkDestination(dest string) error {
	entries, err := os.ReadDir(dest)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dest)
	}
	return nil
}

func versionLabel(v types.VersionNum) string {
	if v == 0 {
		return "none"
	}
	return v.String()
}

package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ocflprobe/pkg/probe"
	"ocflprobe/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrRunNotFound = errors.New("run not found in history")

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// NewRun 把一次运行的结果投影成数据库记录
// out 可以是部分完成的结果，runErr 为 nil 表示通过
func NewRun(conn types.Connection, driver string, out *probe.Outcome, runErr error, settings map[string]any) (*Run, error) {
	run := &Run{
		Driver:    driver,
		Bucket:    conn.Bucket,
		Prefix:    conn.Prefix,
		Region:    conn.Region,
		Endpoint:  conn.Endpoint,
		Passed:    runErr == nil,
		CreatedAt: time.Now(),
	}
	if out != nil {
		run.ObjectID = out.ObjectID.String()
		run.Size = out.Size
		run.WriteMs = out.WriteDuration.Milliseconds()
		run.ReadMs = out.ReadDuration.Milliseconds()
	}
	if runErr != nil {
		run.ErrorKind = probe.KindOf(runErr).String()
		run.Error = runErr.Error()
	}
	if settings != nil {
		raw, err := json.Marshal(settings)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal run config: %w", err)
		}
		run.Config = datatypes.JSON(raw)
	}
	return run, nil
}

// RecordRun 写入一条运行记录 (按 ObjectID 幂等)
func (r *Repository) RecordRun(ctx context.Context, run *Run) error {
	if run.ObjectID == "" {
		return errors.New("run has no object id")
	}
	err := r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "object_id"}},
			DoNothing: true,
		}).
		Create(run).Error
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func (r *Repository) GetRun(ctx context.Context, objectID string) (*Run, error) {
	var run Run
	err := r.db.GetConn().WithContext(ctx).
		Where("object_id = ?", objectID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns 按时间倒序返回最近的运行记录
func (r *Repository) ListRuns(ctx context.Context, limit int, onlyFailed bool) ([]Run, error) {
	q := r.db.GetConn().WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if onlyFailed {
		q = q.Where("passed = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []Run
	err := q.Find(&runs).Error
	return runs, err
}

// Stats 汇总运行次数与通过次数
func (r *Repository) Stats(ctx context.Context) (total, passed int64, err error) {
	conn := r.db.GetConn().WithContext(ctx)
	if err = conn.Model(&Run{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = conn.Model(&Run{}).Where("passed = ?", true).Count(&passed).Error; err != nil {
		return 0, 0, err
	}
	return total, passed, nil
}

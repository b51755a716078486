package meta

import (
	"time"

	"gorm.io/datatypes"
)

// Run 是一次往返探测的记录
type Run struct {
	ID uint `gorm:"primaryKey"`

	// ObjectID 是本次运行创建的对象 (urn:uuid:...)，每次运行唯一
	ObjectID string `gorm:"uniqueIndex;type:varchar(64);not null"`

	Driver   string `gorm:"type:varchar(16)"`
	Bucket   string `gorm:"index;type:varchar(255)"`
	Prefix   string `gorm:"type:varchar(1024)"`
	Region   string `gorm:"type:varchar(64)"`
	Endpoint string `gorm:"type:varchar(1024)"`

	Size    int64
	WriteMs int64
	ReadMs  int64

	Passed    bool   `gorm:"index"`
	ErrorKind string `gorm:"type:varchar(32)"`
	Error     string `gorm:"type:text"`

	// Config 记录影响传输的参数 (分片大小、并发、块大小)，方便对比不同配置下的耗时
	Config datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}

// TableName 强制指定表名
func (Run) TableName() string {
	return "probe_runs"
}

// Package db 定义查询执行层的最小数据库抽象。
//
// 关联加载核心只把数据库当作 execute(query) -> rows 的外部协作者：
// 连接池、驱动与方言差异都留在这里，由 basic 实现或调用方自行适配。
package db

import (
	"context"
	"database/sql"
)

// IDatabase 通用数据库接口
type IDatabase interface {
	// 查询操作
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow

	// 执行操作（建表、写入测试数据等）
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	Ping(ctx context.Context) error
	Close() error

	// 获取原始连接（用于特殊场景）
	Raw() any
}

// IDialectNameProvider 可选接口：提供底层数据库方言名称，
// 例如 "mysql"、"sqlite"、"postgres"，用于推断占位符形式与单条语句的参数上限。
type IDialectNameProvider interface {
	GetDialectName() string
}

// IRows 查询结果集接口
type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error

	// 列信息，用于按列名映射到实体字段
	Columns() ([]string, error)
	ColumnTypes() ([]*sql.ColumnType, error)
}

// IRow 单行结果接口
type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// DBConfig 数据库配置
type DBConfig struct {
	Driver   string `mapstructure:"driver" default:"sqlite"` // mysql, postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database" default:"file::memory:?cache=shared"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// 连接池配置
	MaxOpenConns    int `mapstructure:"max_open_conns"`
	MaxIdleConns    int `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int `mapstructure:"conn_max_lifetime"` // 秒
	ConnMaxIdleTime int `mapstructure:"conn_max_idle_time"` // 秒
}

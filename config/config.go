// Package config 从环境变量与 .env 文件加载进程配置。
//
// 键按 mapstructure 标签嵌套，环境变量名为大写下划线形式，
// 例如 database.driver 对应 DATABASE_DRIVER，preload.max_params 对应 PRELOAD_MAX_PARAMS。
package config

import (
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"relmap/data/db"
	"relmap/logging"
)

// Config 进程配置
type Config struct {
	Log      logging.Config `mapstructure:"log"`
	Database db.DBConfig    `mapstructure:"database"`
	Preload  PreloadConfig  `mapstructure:"preload"`
}

// PreloadConfig 预加载配置
type PreloadConfig struct {
	// VerifyOrder 校验执行器结果是否按关联键有序
	VerifyOrder bool `mapstructure:"verify_order" default:"true"`
	// MaxParams 单条语句参数上限，0 表示使用方言上限
	MaxParams int `mapstructure:"max_params" default:"0"`
}

// Load 加载配置；path 目录下的 .env 存在时覆盖进程环境变量。
func Load(path string) (*Config, error) {
	// 文件不存在时忽略（例如生产环境只用环境变量）
	_ = godotenv.Overload(filepath.Join(path, ".env"))

	v := viper.New()
	bindValues(v, Config{}, "")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindValues 递归遍历结构体，按 mapstructure/default 标签注册默认值。
// 即使默认值为空也要注册，AutomaticEnv 只对已知键生效。
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

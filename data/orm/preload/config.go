package preload

import (
	"relmap/data/orm/schema"
	"relmap/logging"
)

// Config 预加载器配置。
type Config struct {
	// VerifyOrder 为 true 时校验执行器返回结果是否按关联键升序，乱序则重新稳定排序。
	// 自定义加载函数的结果总是重新排序，不受该开关影响。
	VerifyOrder bool
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{VerifyOrder: true}
}

// Option 配置 Preloader。
type Option func(*Preloader)

// WithConfig 覆盖默认配置。
func WithConfig(cfg Config) Option {
	return func(p *Preloader) { p.cfg = cfg }
}

// WithLogger 指定日志实现。
func WithLogger(l logging.Logger) Option {
	return func(p *Preloader) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRegistry 指定解析实体元信息使用的 Registry。
func WithRegistry(r *schema.Registry) Option {
	return func(p *Preloader) {
		if r != nil {
			p.registry = r
		}
	}
}

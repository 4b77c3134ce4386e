package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了客户端运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Service  ServiceConfig  `mapstructure:"service"`
	Poll     PollConfig     `mapstructure:"poll"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ServiceConfig 描述远端交易服务连接信息。
type ServiceConfig struct {
	Network        string        `mapstructure:"network"`
	URL            string        `mapstructure:"url"`
	IsFinalURL     bool          `mapstructure:"is_final_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// PollConfig 控制状态轮询节奏。
type PollConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"` // 负数表示不限
	StatusBuffer int           `mapstructure:"status_buffer"`
}

// DatabaseConfig 管理事件库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MonitorConfig 控制事件查询与指标接口。
type MonitorConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

var validNetworks = map[string]struct{}{
	"mainnet": {},
	"devnet":  {},
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if _, ok := validNetworks[strings.ToLower(c.Service.Network)]; !ok {
		err = multierr.Append(err, fmt.Errorf("service.network 取值非法: %q", c.Service.Network))
	}
	if c.Service.URL == "" {
		err = multierr.Append(err, errors.New("service.url 不能为空"))
	} else if u, parseErr := url.Parse(c.Service.URL); parseErr != nil || u.Host == "" {
		err = multierr.Append(err, fmt.Errorf("service.url 无效: %q", c.Service.URL))
	}
	if c.Service.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("service.request_timeout 必须大于0"))
	}
	if c.Poll.Interval < 0 {
		err = multierr.Append(err, errors.New("poll.interval 不能为负"))
	}
	if c.Poll.StatusBuffer < 0 {
		err = multierr.Append(err, errors.New("poll.status_buffer 不能为负"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Monitor.Enabled && (c.Monitor.Port <= 0 || c.Monitor.Port > 65535) {
		err = multierr.Append(err, errors.New("monitor.port 必须位于[1,65535]"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}

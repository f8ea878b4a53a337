package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// LinkConfig 主机链路配置
// Type: serial（蓝牙 SPP / 串口）| sim（内置模拟器）
type LinkConfig struct {
	Type        string        `mapstructure:"type"`
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// BrickConfig 命令节流与链路保护
type BrickConfig struct {
	CommandRate    int           `mapstructure:"commandRate"`    // 每秒命令数
	CommandBurst   int           `mapstructure:"commandBurst"`   // 突发容量
	GuardThreshold int           `mapstructure:"guardThreshold"` // 连续协议违例次数
	GuardCooldown  time.Duration `mapstructure:"guardCooldown"`
	StrictSequence bool          `mapstructure:"strictSequence"`
}

// PollingConfig 传感器轮询
type PollingConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// SensorConfig 单个传感器
type SensorConfig struct {
	Port      string  `mapstructure:"port"`
	Kind      string  `mapstructure:"kind"`
	Threshold float64 `mapstructure:"threshold"`
	Bottom    float64 `mapstructure:"bottom"`
	Top       float64 `mapstructure:"top"`
	Delta     float64 `mapstructure:"delta"`
	Watch     bool    `mapstructure:"watch"` // 启动时订阅边沿事件
}

// APIConfig 控制接口认证
type APIConfig struct {
	AuthEnabled bool     `mapstructure:"authEnabled"`
	APIKeys     []string `mapstructure:"apiKeys"`
}

// RedisConfig Redis 事件发布配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"poolSize"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Channel      string        `mapstructure:"channel"`
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig      `mapstructure:"app"`
	HTTP    HTTPConfig     `mapstructure:"http"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Link    LinkConfig     `mapstructure:"link"`
	Brick   BrickConfig    `mapstructure:"brick"`
	Polling PollingConfig  `mapstructure:"polling"`
	Sensors []SensorConfig `mapstructure:"sensors"`
	Redis   RedisConfig    `mapstructure:"redis"`
	API     APIConfig      `mapstructure:"api"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 EV3_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("EV3_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// 环境变量覆盖：前缀 EV3_，并将点号替换为下划线
	v.SetEnvPrefix("EV3")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch c.Link.Type {
	case "serial":
		if c.Link.Device == "" {
			return fmt.Errorf("link.device is required for serial link")
		}
	case "sim":
	default:
		return fmt.Errorf("unknown link.type %q", c.Link.Type)
	}
	if c.API.AuthEnabled && len(c.API.APIKeys) == 0 {
		return fmt.Errorf("api.apiKeys is required when api.authEnabled is set")
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("polling.interval must be positive")
	}
	seen := make(map[string]bool, len(c.Sensors))
	for _, s := range c.Sensors {
		if seen[s.Port] {
			return fmt.Errorf("sensor port %q configured twice", s.Port)
		}
		seen[s.Port] = true
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ev3-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/ev3-gateway.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("api.authEnabled", false)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("link.type", "sim")
	v.SetDefault("link.device", "")
	v.SetDefault("link.baud", 115200)
	v.SetDefault("link.readTimeout", "2s")

	v.SetDefault("brick.commandRate", 40)
	v.SetDefault("brick.commandBurst", 10)
	v.SetDefault("brick.guardThreshold", 3)
	v.SetDefault("brick.guardCooldown", "5s")
	v.SetDefault("brick.strictSequence", false)

	v.SetDefault("polling.interval", "50ms")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.channel", "ev3:events")
}

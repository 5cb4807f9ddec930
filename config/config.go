package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置结构体
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Log          LogConfig          `yaml:"log"`
	Redis        RedisConfig        `yaml:"redis"`
	Graph        GraphConfig        `yaml:"graph"`
	Feed         FeedConfig         `yaml:"feed"`
	Notification NotificationConfig `yaml:"notification"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         string        `yaml:"port"`         // 服务器监听端口
	ReadTimeout  time.Duration `yaml:"readTimeout"`  // 读取超时时间
	WriteTimeout time.Duration `yaml:"writeTimeout"` // 写入超时时间
	IdleTimeout  time.Duration `yaml:"idleTimeout"`  // 空闲超时时间
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`   // 数据库驱动类型 mysql/postgres/sqlite
	DSN      string `yaml:"dsn"`      // 完整连接串，非空时忽略下面的字段
	Host     string `yaml:"host"`     // 数据库主机地址
	Port     int    `yaml:"port"`     // 数据库端口
	Username string `yaml:"username"` // 数据库用户名
	Password string `yaml:"password"` // 数据库密码
	Database string `yaml:"database"` // 数据库名称
	Charset  string `yaml:"charset"`  // 字符集
	MaxIdle  int    `yaml:"maxIdle"`  // 最大空闲连接数
	MaxOpen  int    `yaml:"maxOpen"`  // 最大打开连接数
	LogLevel string `yaml:"logLevel"` // SQL日志级别 silent/error/warn/info
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret     string        `yaml:"secret"`     // JWT密钥
	ExpireTime time.Duration `yaml:"expireTime"` // JWT过期时间
	Issuer     string        `yaml:"issuer"`     // JWT签发者
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`      // 日志级别
	Filename   string `yaml:"filename"`   // 日志文件名
	MaxSize    int    `yaml:"maxSize"`    // 单个日志文件最大大小(MB)
	MaxBackups int    `yaml:"maxBackups"` // 最大备份文件数
	MaxAge     int    `yaml:"maxAge"`     // 最大保存天数
	Compress   bool   `yaml:"compress"`   // 是否压缩
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled        bool          `yaml:"enabled"`        // 是否启用，关闭时缓存/队列降级
	Host           string        `yaml:"host"`           // Redis主机地址
	Port           int           `yaml:"port"`           // Redis端口
	Password       string        `yaml:"password"`       // Redis密码
	DB             int           `yaml:"db"`             // Redis数据库编号
	CommunityTTL   time.Duration `yaml:"communityTTL"`   // 社区摘要缓存TTL
	UnreadCountTTL time.Duration `yaml:"unreadCountTTL"` // 未读通知计数TTL
}

// GraphConfig 关系图存储配置
type GraphConfig struct {
	Driver        string        `yaml:"driver"`        // neo4j/relational
	URI           string        `yaml:"uri"`           // neo4j://host:7687
	Username      string        `yaml:"username"`      // Neo4j用户名
	Password      string        `yaml:"password"`      // Neo4j密码
	Database      string        `yaml:"database"`      // Neo4j数据库名，空为默认库
	QueryTimeout  time.Duration `yaml:"queryTimeout"`  // 单次图查询超时
	SyncWorkers   int           `yaml:"syncWorkers"`   // 异步投影协程数，0为同步投影
	QueueSize     int           `yaml:"queueSize"`     // 每个投影协程的队列长度
	RetryAttempts int           `yaml:"retryAttempts"` // 投影失败重试次数
	RetryBackoff  time.Duration `yaml:"retryBackoff"`  // 首次重试退避时间
	RebuildOnBoot bool          `yaml:"rebuildOnBoot"` // 启动时从关系库重建图

	ReconcileInterval time.Duration `yaml:"reconcileInterval"` // 投影丢失后重建检查间隔
}

// FeedConfig 动态流配置
type FeedConfig struct {
	DefaultLimit    int `yaml:"defaultLimit"`    // 默认每页条数
	MaxLimit        int `yaml:"maxLimit"`        // 每页最大条数
	SuggestionLimit int `yaml:"suggestionLimit"` // 好友推荐默认条数
}

// NotificationConfig 通知配置
type NotificationConfig struct {
	QueueKey      string        `yaml:"queueKey"`      // Redis通知队列key
	Workers       int           `yaml:"workers"`       // 出队协程数
	Retention     time.Duration `yaml:"retention"`     // 已读通知保留时长
	PurgeInterval time.Duration `yaml:"purgeInterval"` // 清理任务间隔
}

// LoadConfig 加载配置（混合方式：YAML文件 + 环境变量）
func LoadConfig() *Config {
	return LoadConfigFrom(getEnv("CONFIG_FILE", "config/config.yaml"))
}

// LoadConfigFrom 从指定文件加载配置
func LoadConfigFrom(filePath string) *Config {
	// 1. 首先从YAML文件加载默认配置
	config := loadFromYAML(filePath)

	// 2. 用环境变量覆盖配置（环境变量优先级更高）
	overrideWithEnvVars(config)

	return config
}

// loadFromYAML 从YAML文件加载配置
func loadFromYAML(filePath string) *Config {
	// 读取配置文件
	data, err := os.ReadFile(filePath)
	if err != nil {
		// 如果文件不存在，返回默认配置
		return getDefaultConfig()
	}

	// 在默认配置之上解析YAML，未填写的字段保留默认值
	config := getDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		// 如果解析失败，返回默认配置
		return getDefaultConfig()
	}

	return config
}

// overrideWithEnvVars 用环境变量覆盖配置
func overrideWithEnvVars(config *Config) {
	// 服务器配置
	if port := getEnv("SERVER_PORT", ""); port != "" {
		config.Server.Port = port
	}
	if timeout := getEnvDuration("SERVER_READ_TIMEOUT", 0); timeout > 0 {
		config.Server.ReadTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_WRITE_TIMEOUT", 0); timeout > 0 {
		config.Server.WriteTimeout = timeout
	}
	if timeout := getEnvDuration("SERVER_IDLE_TIMEOUT", 0); timeout > 0 {
		config.Server.IdleTimeout = timeout
	}

	// 数据库配置
	if driver := getEnv("DB_DRIVER", ""); driver != "" {
		config.Database.Driver = driver
	}
	if dsn := getEnv("DB_DSN", ""); dsn != "" {
		config.Database.DSN = dsn
	}
	if host := getEnv("DB_HOST", ""); host != "" {
		config.Database.Host = host
	}
	if port := getEnvInt("DB_PORT", 0); port > 0 {
		config.Database.Port = port
	}
	if username := getEnv("DB_USERNAME", ""); username != "" {
		config.Database.Username = username
	}
	if password := getEnv("DB_PASSWORD", ""); password != "" {
		config.Database.Password = password
	}
	if database := getEnv("DB_DATABASE", ""); database != "" {
		config.Database.Database = database
	}
	if maxIdle := getEnvInt("DB_MAX_IDLE", 0); maxIdle > 0 {
		config.Database.MaxIdle = maxIdle
	}
	if maxOpen := getEnvInt("DB_MAX_OPEN", 0); maxOpen > 0 {
		config.Database.MaxOpen = maxOpen
	}

	// JWT配置
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		config.JWT.Secret = secret
	}
	if expireTime := getEnvDuration("JWT_EXPIRE_TIME", 0); expireTime > 0 {
		config.JWT.ExpireTime = expireTime
	}
	if issuer := getEnv("JWT_ISSUER", ""); issuer != "" {
		config.JWT.Issuer = issuer
	}

	// 日志配置
	if level := getEnv("LOG_LEVEL", ""); level != "" {
		config.Log.Level = level
	}
	if filename := getEnv("LOG_FILENAME", ""); filename != "" {
		config.Log.Filename = filename
	}

	// Redis配置
	config.Redis.Enabled = getEnvBool("REDIS_ENABLED", config.Redis.Enabled)
	if host := getEnv("REDIS_HOST", ""); host != "" {
		config.Redis.Host = host
	}
	if port := getEnvInt("REDIS_PORT", 0); port > 0 {
		config.Redis.Port = port
	}
	if password := getEnv("REDIS_PASSWORD", ""); password != "" {
		config.Redis.Password = password
	}
	if db := getEnvInt("REDIS_DB", -1); db >= 0 {
		config.Redis.DB = db
	}

	// 图存储配置
	if driver := getEnv("GRAPH_DRIVER", ""); driver != "" {
		config.Graph.Driver = driver
	}
	if uri := getEnv("NEO4J_URI", ""); uri != "" {
		config.Graph.URI = uri
	}
	if username := getEnv("NEO4J_USERNAME", ""); username != "" {
		config.Graph.Username = username
	}
	if password := getEnv("NEO4J_PASSWORD", ""); password != "" {
		config.Graph.Password = password
	}
	if d := getEnvDuration("GRAPH_TIMEOUT", 0); d > 0 {
		config.Graph.QueryTimeout = d
	}
	if workers := getEnvInt("GRAPH_SYNC_WORKERS", -1); workers >= 0 {
		config.Graph.SyncWorkers = workers
	}
	config.Graph.RebuildOnBoot = getEnvBool("GRAPH_REBUILD_ON_BOOT", config.Graph.RebuildOnBoot)

	// 动态流配置
	if limit := getEnvInt("FEED_MAX_LIMIT", 0); limit > 0 {
		config.Feed.MaxLimit = limit
	}

	// 通知配置
	if d := getEnvDuration("NOTIFY_RETENTION", 0); d > 0 {
		config.Notification.Retention = d
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	switch c.Graph.Driver {
	case "neo4j":
		if c.Graph.URI == "" {
			return fmt.Errorf("graph.uri is required for neo4j driver")
		}
	case "relational":
	default:
		return fmt.Errorf("unsupported graph driver: %q", c.Graph.Driver)
	}
	if c.Graph.QueryTimeout <= 0 {
		return fmt.Errorf("graph.queryTimeout must be positive")
	}
	if c.Graph.SyncWorkers < 0 || c.Graph.QueueSize <= 0 {
		return fmt.Errorf("graph.syncWorkers must be >= 0 and graph.queueSize > 0")
	}
	if c.Feed.DefaultLimit <= 0 || c.Feed.MaxLimit < c.Feed.DefaultLimit {
		return fmt.Errorf("feed limits must satisfy 0 < defaultLimit <= maxLimit")
	}
	if c.Notification.Retention <= 0 || c.Notification.PurgeInterval <= 0 {
		return fmt.Errorf("notification retention and purgeInterval must be positive")
	}
	return nil
}

// getDefaultConfig 获取默认配置
func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			Username: "social_user",
			Password: "social_pass",
			Database: "social_system",
			Charset:  "utf8mb4",
			MaxIdle:  10,
			MaxOpen:  100,
			LogLevel: "warn",
		},
		JWT: JWTConfig{
			Secret:     "your-secret-key",
			ExpireTime: 24 * time.Hour,
			Issuer:     "social-system",
		},
		Log: LogConfig{
			Level:      "info",
			Filename:   "logs/app.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
		Redis: RedisConfig{
			Enabled:        true,
			Host:           "localhost",
			Port:           6379,
			Password:       "",
			DB:             0,
			CommunityTTL:   10 * time.Minute,
			UnreadCountTTL: 24 * time.Hour,
		},
		Graph: GraphConfig{
			Driver:        "relational",
			URI:           "neo4j://localhost:7687",
			Username:      "neo4j",
			QueryTimeout:  2 * time.Second,
			SyncWorkers:   2,
			QueueSize:     1024,
			RetryAttempts: 3,
			RetryBackoff:  200 * time.Millisecond,

			ReconcileInterval: 5 * time.Minute,
		},
		Feed: FeedConfig{
			DefaultLimit:    10,
			MaxLimit:        50,
			SuggestionLimit: 10,
		},
		Notification: NotificationConfig{
			QueueKey:      "social:notify:queue",
			Workers:       1,
			Retention:     30 * 24 * time.Hour,
			PurgeInterval: time.Hour,
		},
	}
}

// Default 返回默认配置（测试和工具使用）
func Default() *Config {
	return getDefaultConfig()
}

// 辅助函数：获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 辅助函数：获取整数环境变量
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 辅助函数：获取布尔环境变量
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// 辅助函数：获取时间环境变量
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// LLMConfig 定义远程补全服务的调用配置
type LLMConfig struct {
	Endpoint    string        // 补全服务地址（OpenAI 兼容 chat/completions），留空表示未接入
	APIKey      string        // Bearer 认证密钥
	Model       string        // 模型名，默认 "gpt-4"
	Temperature float64       // 采样温度，默认 0.3
	MaxTokens   int           // 最大生成 token 数，默认 1000
	Timeout     time.Duration // 单次调用超时，默认 30s
	RatePerSec  float64       // 每秒调用上限，默认 2
}

// WorkflowConfig 定义各类自动化动作的开关
type WorkflowConfig struct {
	AutoReplyEnabled        bool   // 自动回复开关，默认开
	AutoTaskCreationEnabled bool   // 自动建任务开关，默认开
	SaveAttachmentsEnabled  bool   // 附件保存开关，默认开
	TaskProvider            string // 外部任务系统标识: notion / trello / clickup，默认 notion
}

// SMTPConfig 定义发送回复使用的 SMTP 出站配置
type SMTPConfig struct {
	Addr     string        // SMTP 服务器地址，格式 "host:port"
	From     string        // 发信地址
	Username string        // 认证用户名，留空表示匿名
	Password string        // 认证密码
	Timeout  time.Duration // 发送超时，默认 15s
}

// DatabaseConfig 定义审计库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义已处理邮件去重缓存的 Redis 配置
type RedisConfig struct {
	Address  string // Redis 服务地址，留空表示不启用去重缓存
	Password string // Redis 认证密码
	DB       int    // Redis 数据库编号，默认 0
}

// StorageConfig 定义本地文件存储配置
type StorageConfig struct {
	AttachmentsPath string // 附件落盘目录，默认 "storage/attachments"
}

// AgentConfig 定义批处理相关参数
type AgentConfig struct {
	MaxConcurrency int // 单批次并发处理的邮件数上限，默认 4
	FetchLimit     int // 单次拉取的邮件数上限，默认 10
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	LogFile     string // 日志文件路径，留空只输出到标准输出
	MaxSizeMB   int    // 单个日志文件上限（MB），默认 100
	MaxBackups  int    // 保留的轮转文件数，默认 3
	MaxAgeDays  int    // 轮转文件保留天数，默认 28
	Compress    bool   // 是否压缩轮转文件，默认开
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
//
// 加载后不可变，按值注入各组件，组件内部不做任何全局配置查询。
type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Workflow WorkflowConfig
	SMTP     SMTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Agent    AgentConfig
	CORS     CORSConfig
	Log      LogConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: MAILAGENT_
// 例如: MAILAGENT_LLM_MODEL, MAILAGENT_WORKFLOW_AUTO_REPLY_ENABLED
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("mailagent")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("llm.endpoint", "")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.max_tokens", 1000)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.rate_per_sec", 2.0)
	viper.SetDefault("workflow.auto_reply_enabled", true)
	viper.SetDefault("workflow.auto_task_creation_enabled", true)
	viper.SetDefault("workflow.save_attachments_enabled", true)
	viper.SetDefault("workflow.task_provider", "notion")
	viper.SetDefault("smtp.addr", "")
	viper.SetDefault("smtp.from", "")
	viper.SetDefault("smtp.username", "")
	viper.SetDefault("smtp.password", "")
	viper.SetDefault("smtp.timeout", "15s")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("storage.attachments_path", "storage/attachments")
	viper.SetDefault("agent.max_concurrency", 4)
	viper.SetDefault("agent.fetch_limit", 10)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.log_file", "")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 28)
	viper.SetDefault("log.compress", true)

	llmTimeout, err := time.ParseDuration(viper.GetString("llm.timeout"))
	if err != nil {
		llmTimeout = 30 * time.Second
	}

	smtpTimeout, err := time.ParseDuration(viper.GetString("smtp.timeout"))
	if err != nil {
		smtpTimeout = 15 * time.Second
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	taskProvider := strings.ToLower(viper.GetString("workflow.task_provider"))
	switch taskProvider {
	case "notion", "trello", "clickup":
	default:
		return nil, fmt.Errorf("invalid workflow.task_provider: %q (supported: notion, trello, clickup)", taskProvider)
	}

	maxConcurrency := viper.GetInt("agent.max_concurrency")
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	fetchLimit := viper.GetInt("agent.fetch_limit")
	if fetchLimit <= 0 {
		fetchLimit = 10
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	temperature := viper.GetFloat64("llm.temperature")
	if temperature < 0 || temperature > 2 {
		return nil, fmt.Errorf("invalid llm.temperature: %v (must be in [0,2])", temperature)
	}

	maxTokens := viper.GetInt("llm.max_tokens")
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	ratePerSec := viper.GetFloat64("llm.rate_per_sec")
	if ratePerSec <= 0 {
		ratePerSec = 2.0
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		LLM: LLMConfig{
			Endpoint:    viper.GetString("llm.endpoint"),
			APIKey:      viper.GetString("llm.api_key"),
			Model:       viper.GetString("llm.model"),
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Timeout:     llmTimeout,
			RatePerSec:  ratePerSec,
		},
		Workflow: WorkflowConfig{
			AutoReplyEnabled:        viper.GetBool("workflow.auto_reply_enabled"),
			AutoTaskCreationEnabled: viper.GetBool("workflow.auto_task_creation_enabled"),
			SaveAttachmentsEnabled:  viper.GetBool("workflow.save_attachments_enabled"),
			TaskProvider:            taskProvider,
		},
		SMTP: SMTPConfig{
			Addr:     viper.GetString("smtp.addr"),
			From:     viper.GetString("smtp.from"),
			Username: viper.GetString("smtp.username"),
			Password: viper.GetString("smtp.password"),
			Timeout:  smtpTimeout,
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			AttachmentsPath: viper.GetString("storage.attachments_path"),
		},
		Agent: AgentConfig{
			MaxConcurrency: maxConcurrency,
			FetchLimit:     fetchLimit,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			LogFile:     viper.GetString("log.log_file"),
			MaxSizeMB:   viper.GetInt("log.max_size_mb"),
			MaxBackups:  viper.GetInt("log.max_backups"),
			MaxAgeDays:  viper.GetInt("log.max_age_days"),
			Compress:    viper.GetBool("log.compress"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从子目录运行的情况）
//
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}

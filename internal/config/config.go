package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Game   GameConfig   `mapstructure:"game"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig 状态存储配置
// Backend选择存储后端：db（事务行锁，参考实现）或 file（文件+锁文件）
type StoreConfig struct {
	Backend         string        `mapstructure:"backend"`
	Driver          string        `mapstructure:"driver"` // db后端: sqlite/mysql/postgres
	DSN             string        `mapstructure:"dsn"`
	Path            string        `mapstructure:"path"` // file后端: 状态文件路径
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GameConfig 游戏配置
type GameConfig struct {
	QuizWindow    time.Duration `mapstructure:"quiz_window"`    // 抢答答题窗口
	VotingWindow  time.Duration `mapstructure:"voting_window"`  // 投票答题窗口
	WindowGrace   time.Duration `mapstructure:"window_grace"`   // 客户端锁屏前的宽限（吸收网络延迟）
	BasePoints    int           `mapstructure:"base_points"`    // 答对基础分
	MaxBonus      int           `mapstructure:"max_bonus"`      // 速度加成上限
	WelcomeMsg    string        `mapstructure:"welcome_msg"`    // 默认欢迎语
	QuizPack      []PackQuestion `mapstructure:"quiz_pack"`     // 切换抢答模式时的默认题目
	VotingPack    []string       `mapstructure:"voting_pack"`   // 切换投票模式时的默认题目
}

// PackQuestion 配置文件中的抢答题目
type PackQuestion struct {
	Question string   `mapstructure:"question"`
	Options  []string `mapstructure:"options"`
	Correct  int      `mapstructure:"correct"`
}

// SyncConfig 客户端同步配置
type SyncConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`         // 玩家/管理员轮询间隔
	DisplayPollInterval time.Duration `mapstructure:"display_poll_interval"` // 大屏轮询间隔
	ErrorThreshold      int           `mapstructure:"error_threshold"`       // 连续失败多少次后标记为断线
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig 管理员认证配置
type AuthConfig struct {
	AdminUser         string        `mapstructure:"admin_user"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"` // argon2id编码哈希
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenExpiry       time.Duration `mapstructure:"token_expiry"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		v = viper.New()

		// 设置配置文件路径
		if configPath != "" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath("./config")
			v.AddConfigPath(".")
		}

		// 设置环境变量前缀
		v.SetEnvPrefix("PARTY_GAME")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		// 设置默认值
		setDefaults(v)

		// 读取配置文件
		if err = v.ReadInConfig(); err != nil {
			// 如果配置文件不存在，使用默认配置
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return
			}
			err = nil
		}

		// 解析配置到结构体
		cfg = &Config{}
		err = v.Unmarshal(cfg)
	})

	return err
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// 存储默认配置
	v.SetDefault("store.backend", "db")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "./data/party-game.db")
	v.SetDefault("store.path", "./data/state.json")
	v.SetDefault("store.lock_timeout", "3s")
	v.SetDefault("store.max_idle_conns", 10)
	v.SetDefault("store.max_open_conns", 100)
	v.SetDefault("store.conn_max_lifetime", "1h")
	v.SetDefault("store.log_level", "warn")
	v.SetDefault("store.auto_migrate", true)

	// 游戏默认配置
	v.SetDefault("game.quiz_window", "10s")
	v.SetDefault("game.voting_window", "30s")
	v.SetDefault("game.window_grace", "2s")
	v.SetDefault("game.base_points", 100)
	v.SetDefault("game.max_bonus", 100)
	v.SetDefault("game.welcome_msg", "🎉 WELCOME TO THE PARTY! 🎉")

	// 同步默认配置
	v.SetDefault("sync.poll_interval", "1s")
	v.SetDefault("sync.display_poll_interval", "500ms")
	v.SetDefault("sync.error_threshold", 5)
	v.SetDefault("sync.request_timeout", "5s")

	// 认证默认配置
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.token_expiry", "12h")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "both")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "party-game.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("配置重载失败: %v\n", err)
			return
		}

		cfg = newCfg

		if callback != nil {
			callback(cfg)
		}

		fmt.Println("配置已重新加载")
	})
}

// GetString 获取字符串配置
func GetString(key string) string {
	return v.GetString(key)
}

// GetInt 获取整数配置
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetBool 获取布尔配置
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetDuration 获取时间间隔配置
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}

// IsSet 检查配置项是否存在
func IsSet(key string) bool {
	return v.IsSet(key)
}

package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/sovanra-ruos/chat-service/pkg/config"
	"github.com/sovanra-ruos/chat-service/pkg/database"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Database  database.Config
	JWT       JWTConfig
	IDs       IDConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type KafkaConfig struct {
	Brokers             string
	ChatTopic           string `mapstructure:"chat_topic"`
	PresenceTopic       string `mapstructure:"presence_topic"`
	GroupID             string `mapstructure:"group_id"`
	Partitions          int
	AutoOffsetReset     string `mapstructure:"auto_offset_reset"`
	SessionTimeoutMs    int    `mapstructure:"session_timeout_ms"`
	HeartbeatIntervalMs int    `mapstructure:"heartbeat_interval_ms"`
	MaxPollIntervalMs   int    `mapstructure:"max_poll_interval_ms"`
	FetchMinBytes       int    `mapstructure:"fetch_min_bytes"`
	FetchMaxWaitMs      int    `mapstructure:"fetch_max_wait_ms"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	PresenceTTL time.Duration `mapstructure:"presence_ttl"`
	RecentTTL   time.Duration `mapstructure:"recent_ttl"`
	MarkerTTL   time.Duration `mapstructure:"marker_ttl"`
	RecentLimit int           `mapstructure:"recent_limit"`
}

type JWTConfig struct {
	AccessDuration  time.Duration `mapstructure:"access_duration"`
	RefreshDuration time.Duration `mapstructure:"refresh_duration"`
	Issuer          string
}

type IDConfig struct {
	Scheme string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8088)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.chat_topic", "chat-messages")
	v.SetDefault("kafka.presence_topic", "user-presence")
	v.SetDefault("kafka.group_id", "chat-service")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("kafka.auto_offset_reset", "earliest")
	v.SetDefault("kafka.session_timeout_ms", 30000)
	v.SetDefault("kafka.heartbeat_interval_ms", 10000)
	v.SetDefault("kafka.max_poll_interval_ms", 300000)
	v.SetDefault("kafka.fetch_min_bytes", 1)
	v.SetDefault("kafka.fetch_max_wait_ms", 500)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.presence_ttl", "24h")
	v.SetDefault("cache.recent_ttl", "168h")
	v.SetDefault("cache.marker_ttl", "24h")
	v.SetDefault("cache.recent_limit", 50)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chat")
	v.SetDefault("database.password", "chat")
	v.SetDefault("database.db_name", "chat")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.file_path", "chat.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("jwt.access_duration", "15m")
	v.SetDefault("jwt.refresh_duration", "168h")
	v.SetDefault("jwt.issuer", "chat-service")
	v.SetDefault("ids.scheme", "uuid")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.chat_topic", "KAFKA_CHAT_TOPIC")
	v.BindEnv("kafka.presence_topic", "KAFKA_PRESENCE_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("kafka.partitions", "KAFKA_PARTITIONS")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.db_name", "DB_NAME")
	v.BindEnv("ids.scheme", "ID_SCHEME")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.PresenceTTL = parseDuration(v, "cache.presence_ttl", 24*time.Hour)
	cfg.Cache.RecentTTL = parseDuration(v, "cache.recent_ttl", 168*time.Hour)
	cfg.Cache.MarkerTTL = parseDuration(v, "cache.marker_ttl", 24*time.Hour)
	cfg.JWT.AccessDuration = parseDuration(v, "jwt.access_duration", 15*time.Minute)
	cfg.JWT.RefreshDuration = parseDuration(v, "jwt.refresh_duration", 168*time.Hour)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}

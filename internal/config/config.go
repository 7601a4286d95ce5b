package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	Storage            string // postgres / memory
	DatabaseURL        string // あれば最優先
	MemorySeedProducts string // STORAGE=memory 用の商品JSONファイル

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret    string // JWT署名シークレット
	AuthDisabled bool   // ローカル確認用。trueならJWTを見ない

	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	MaxItemQuantity        int64 // 1明細あたりの上限
	BootstrapMainWarehouse bool  // MAIN倉庫が無ければ起動時に作る

	RabbitMQURL      string // 空ならイベントは捨てる
	RabbitMQExchange string
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxQty, err := atoiDefault("MAX_ITEM_QUANTITY", 10000)
	if err != nil {
		return Config{}, err
	}
	authDisabled, err := boolDefault("AUTH_DISABLED", false)
	if err != nil {
		return Config{}, err
	}
	bootstrap, err := boolDefault("BOOTSTRAP_MAIN_WAREHOUSE", true)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		Storage:     strings.ToLower(getenv("STORAGE", StoragePostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		MemorySeedProducts: os.Getenv("MEMORY_SEED_PRODUCTS"),

		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "stocknet"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		AuthDisabled: authDisabled,

		GoEnv:    getenv("GO_ENV", "prod"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		MaxItemQuantity:        int64(maxQty),
		BootstrapMainWarehouse: bootstrap,

		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange: getenv("RABBITMQ_EXCHANGE", "inventory.events"),
	}

	//必須チェック
	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return Config{}, fmt.Errorf("STORAGE must be %s or %s", StoragePostgres, StorageMemory)
	}
	if !cfg.AuthDisabled && cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MaxItemQuantity < 1 {
		return Config{}, fmt.Errorf("MAX_ITEM_QUANTITY must be >= 1")
	}

	return cfg, nil
}

// DSN は DATABASE_URL があればそれ、無ければ POSTGRES_* から組み立てる。
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// ":8080" の形にする
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func boolDefault(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true/false: %w", key, err)
	}
	return b, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	JWTExpiry   time.Duration
	Port        string
	SiteName    string
	AppURL      string

	Stripe   StripeConfig
	SendGrid SendGridConfig
	Storage  StorageConfig
	Redis    RedisConfig

	FirstAdminEmail    string
	FirstAdminPassword string
}

// StripeConfig 支付配置
type StripeConfig struct {
	SecretKey            string
	WebhookSecret        string
	SkipWebhookSignature bool
	Currency             string
	PriceIDs             map[string]string // 套餐 -> Stripe Price ID
}

// SendGridConfig 邮件配置
type SendGridConfig struct {
	APIKey    string
	FromEmail string
}

// StorageConfig 媒体存储配置
type StorageConfig struct {
	Type      string // local / s3
	BasePath  string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// RedisConfig 为空地址时不启用分布式锁
type RedisConfig struct {
	Addr     string
	Password string
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load 加载配置
func Load() *Config {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbUser := getEnv("DB_USER", "postgres")
		dbPass := getEnv("DB_PASSWORD", "postgres")
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbName := getEnv("DB_NAME", "knowledger")
		dbSSL := getEnv("DB_SSLMODE", "disable")
		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)
	}

	env := getEnv("APP_ENV", "development")
	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", defaultSecret))
	if env == "production" && appSecret == defaultSecret {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	skipSignature := getEnv("SKIP_WEBHOOK_SIGNATURE", "false") == "true"
	if skipSignature && env == "production" {
		fmt.Println("【严重警告】生产环境禁止跳过 Stripe 回调签名校验，已忽略 SKIP_WEBHOOK_SIGNATURE。")
		skipSignature = false
	}

	return &Config{
		Env:         env,
		AppSecret:   appSecret,
		DatabaseURL: dbURL,
		JWTExpiry:   time.Duration(expiryHours) * time.Hour,
		Port:        getEnv("PORT", "5005"),
		SiteName:    getEnv("SITE_NAME", "KnowLedger"),
		AppURL:      getEnv("NEXT_PUBLIC_APP_URL", "http://localhost:3000"),
		Stripe: StripeConfig{
			SecretKey:            os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:        os.Getenv("STRIPE_WEBHOOK_SECRET"),
			SkipWebhookSignature: skipSignature,
			Currency:             getEnv("STRIPE_CURRENCY", "eur"),
			PriceIDs: map[string]string{
				"MONTHLY": os.Getenv("STRIPE_PRICE_MONTHLY"),
				"YEARLY":  os.Getenv("STRIPE_PRICE_YEARLY"),
				"DAILY":   os.Getenv("STRIPE_PRICE_DAILY"),
			},
		},
		SendGrid: SendGridConfig{
			APIKey:    os.Getenv("SENDGRID_API_KEY"),
			FromEmail: getEnv("SENDGRID_FROM_EMAIL", "no-reply@knowledger.local"),
		},
		Storage: StorageConfig{
			Type:      getEnv("STORAGE_TYPE", "local"),
			BasePath:  getEnv("STORAGE_BASE_PATH", "./uploads"),
			Bucket:    os.Getenv("STORAGE_BUCKET"),
			Region:    getEnv("STORAGE_REGION", "auto"),
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			AccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		FirstAdminEmail:    os.Getenv("FIRST_ADMIN_EMAIL"),
		FirstAdminPassword: os.Getenv("FIRST_ADMIN_PASSWORD"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DatabaseConfig 数据库配置（控制面 PostgreSQL：连锁注册表 + 同步任务表）
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SQLiteConfig 租户库配置（每个租户一个独立的 SQLite 文件）
type SQLiteConfig struct {
	DataDir     string
	BusyTimeout time.Duration
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LoadFromEnv 从环境变量加载配置
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Port)
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
}

// LoadFromEnv 从环境变量加载Redis配置
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		fmt.Sscanf(db, "%d", &c.DB)
	}
}

// PathFor 返回租户库文件路径: <DataDir>/<slug>.db
func (c *SQLiteConfig) PathFor(slug string) string {
	return filepath.Join(c.DataDir, slug+".db")
}

// GetDSN 生成 go-sqlite3 DSN（_busy_timeout 单位为毫秒）
func (c *SQLiteConfig) GetDSN(slug string) string {
	dsn := "file:" + c.PathFor(slug)
	if c.BusyTimeout > 0 {
		dsn += fmt.Sprintf("?_busy_timeout=%d", c.BusyTimeout.Milliseconds())
	}
	return dsn
}

package cache

import "time"

// MemoryOption configures the memory tier.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory tier configuration.
type MemoryConfig struct {
	MaxSize int
}

// WithMemoryMaxSize sets the maximum number of entries held in memory.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxSize = size
	}
}

// SQLiteOption configures the sqlite tier.
type SQLiteOption func(*SQLiteConfig)

// SQLiteConfig holds sqlite tier configuration.
type SQLiteConfig struct {
	Path  string
	Table string
}

// WithSQLiteTable overrides the table name.
func WithSQLiteTable(table string) SQLiteOption {
	return func(c *SQLiteConfig) {
		c.Table = table
	}
}

// RedisOption configures the redis tier.
type RedisOption func(*RedisConfig)

// RedisConfig holds redis tier configuration.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

// WithRedisAddr sets the redis address (host:port).
func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) {
		c.Addr = addr
	}
}

// WithRedisPassword sets the redis password.
func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithRedisDB sets the redis database number.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithRedisPool sets connection pool settings.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

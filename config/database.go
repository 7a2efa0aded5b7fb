package config

// DBConfig contains PostgreSQL connection settings.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"pasta"`
	Password string `env:"PASSWORD" envDefault:"pasta"`
	Name     string `env:"NAME"     envDefault:"pasta"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // 'require' in production
	// MaxOpenConns bounds the pool. Each runner worker holds at most one connection at a time,
	// plus one for the LISTEN waiter.
	MaxOpenConns int `env:"MAX_OPEN_CONNS" envDefault:"25"`
	// RunMigrationsOnStart applies pending migrations before services start.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// Sanitize keeps the pool usable.
func (c *DBConfig) Sanitize() {
	if c.MaxOpenConns < 2 {
		c.MaxOpenConns = 2
	}
}

// RedisConfig contains Redis settings. Redis is optional; it carries the job-available
// signal when NOTIFY_BACKEND=redis and the bulk-rerun guard keys.
type RedisConfig struct {
	Enabled      bool     `env:"ENABLED"     envDefault:"false"`
	URI          string   `env:"URI"         envDefault:"localhost:6379"`
	Password     string   `env:"PASSWORD"    envDefault:""`
	DB           int      `env:"DB"          envDefault:"0"`
	KeyPrefix    string   `env:"KEY_PREFIX"  envDefault:"pasta:"`
	Channel      string   `env:"CHANNEL"     envDefault:"assessment_job_available"`
	ClusterNodes []string `env:"CLUSTER_NODES" envDefault:""`
	UseCluster   bool     `env:"USE_CLUSTER"   envDefault:"false"`
}

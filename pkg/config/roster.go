package config

import "time"

// RosterConfig holds runtime configuration for the roster tooling.
type RosterConfig struct {
	Environment   string
	DatabaseURL   string
	MigrationsDir string

	// Optional Redis-backed maintenance lock; batch commands run
	// unguarded when no address is configured.
	MaintLockRedisAddr string
	MaintLockRedisPass string
	MaintLockRedisDB   int
	MaintLockTTL       time.Duration

	// Default password for seeded demo accounts.
	SeedPassword string

	// FixCapacityDryRun makes the capacity repair command report its
	// plan without writing unless overridden on the command line.
	FixCapacityDryRun bool
}

// LoadRosterConfig constructs a RosterConfig from environment variables.
func LoadRosterConfig() RosterConfig {
	return RosterConfig{
		Environment:        GetString("APP_ENV", "development"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://roster:roster@db:5432/roster?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		MaintLockRedisAddr: GetString("MAINT_LOCK_REDIS_ADDR", ""),
		MaintLockRedisPass: GetString("MAINT_LOCK_REDIS_PASSWORD", ""),
		MaintLockRedisDB:   GetInt("MAINT_LOCK_REDIS_DB", 0),
		MaintLockTTL:       time.Duration(GetInt64("MAINT_LOCK_TTL_SECONDS", 600)) * time.Second,
		SeedPassword:       GetString("SEED_PASSWORD", "password123"),
		FixCapacityDryRun:  GetBool("FIX_CAPACITY_DRY_RUN", false),
	}
}

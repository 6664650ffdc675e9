package config

import "time"

// ServerConfig is the root configuration for tssd.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Seed     SeedSection     `koanf:"seed"`
	Security SecuritySection `koanf:"security"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures the RPC listener.
type ServerSection struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// MetricsAddr serves /metrics on a separate listener when set.
	// Empty means /metrics is served on the RPC listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// RateLimit is the sustained requests per second accepted (0 = off).
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageSection configures the key store.
type StorageSection struct {
	DataDir    string        `koanf:"data_dir"`
	SyncWrites bool          `koanf:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval"`
	InMemory   bool          `koanf:"in_memory"`
}

// SeedSection configures how the daemon seed is established.
type SeedSection struct {
	// Mode is one of existing, create, import, vault.
	Mode       string       `koanf:"mode"`
	ImportFile string       `koanf:"import_file"`
	Vault      VaultSection `koanf:"vault"`
}

// VaultSection locates the seed in a Vault KV v2 engine.
type VaultSection struct {
	Address string        `koanf:"address"`
	Token   string        `koanf:"token"`
	Mount   string        `koanf:"mount"`
	Path    string        `koanf:"path"`
	Field   string        `koanf:"field"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecuritySection configures at-rest protection.
type SecuritySection struct {
	// EncryptionKey is a hex-encoded 16, 24 or 32 byte key for the store.
	EncryptionKey string `koanf:"encryption_key"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

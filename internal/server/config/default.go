package config

import "time"

// Default configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 50051
	DefaultRateBurst       = 50
	DefaultShutdownTimeout = 15 * time.Second

	DefaultDataDir    = "/var/lib/tssd/data"
	DefaultGCInterval = 10 * time.Minute

	DefaultSeedMode   = "existing"
	DefaultVaultMount = "secret"
	DefaultVaultPath  = "tssd/seed"
	DefaultVaultField = "seed"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default daemon configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Host:            DefaultHost,
			Port:            DefaultPort,
			RateBurst:       DefaultRateBurst,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			DataDir:    DefaultDataDir,
			SyncWrites: true,
			GCInterval: DefaultGCInterval,
		},
		Seed: SeedSection{
			Mode: DefaultSeedMode,
			Vault: VaultSection{
				Mount: DefaultVaultMount,
				Path:  DefaultVaultPath,
				Field: DefaultVaultField,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

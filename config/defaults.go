// =============================================================================
// 📦 EmbedProxy 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig returns the proxy's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Batch:     DefaultBatchConfig(),
		Upstream:  DefaultUpstreamConfig(),
		Cache:     DefaultCacheConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default HTTP server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
		APIKeys:         nil,
		CORSAllowedOrigins: nil,
	}
}

// DefaultBatchConfig returns the default batching thresholds.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxBatchSize:   32,
		MaxTotalInputs: 256,
		MaxWait:        50 * time.Millisecond,
		Model:          "default",
	}
}

// DefaultUpstreamConfig returns the default upstream client configuration.
func DefaultUpstreamConfig() UpstreamConfig {
	return UpstreamConfig{
		Endpoint: "http://localhost:8081",
		Timeout:  10 * time.Second,
	}
}

// DefaultCacheConfig returns the default embedding cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		TTL:          30 * time.Minute,
	}
}

// DefaultDatabaseConfig returns the default flight audit log configuration.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         false,
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "embedproxy",
		Name:            "embedproxy",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "embedproxy",
		SampleRate:   0.1,
	}
}

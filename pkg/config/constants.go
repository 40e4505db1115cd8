package config

import "time"

const (
	DefaultServiceName = "notifier"

	// Server ports.
	DefaultGRPCPort = 9090

	// Database defaults.
	DefaultPostgresPort = 5432
	DefaultRedisPort    = 6379

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// Connection pool defaults.
	DefaultMaxConnections = 25
	DefaultMinConnections = 5
	DefaultPoolSize       = 10

	// Timeout defaults.
	DefaultMaxConnIdleTime = 30 * time.Minute
	DefaultDialTimeout     = 5 * time.Second
	DefaultReadTimeout     = 3 * time.Second
	DefaultWriteTimeout    = 3 * time.Second

	// Catalog defaults.
	DefaultTMDBBaseURL           = "https://api.themoviedb.org/3"
	DefaultImageBaseURL          = "https://image.tmdb.org/t/p/w600_and_h900_bestv2"
	DefaultTMDBRequestsPerSecond = 4
	DefaultMetadataTTL           = 6 * time.Hour

	// Dispatch defaults.
	DefaultDispatchWorkers   = 4
	DefaultDispatchQueueSize = 256

	TransportLog   = "log"
	TransportNATS  = "nats"
	TransportKafka = "kafka"
	TransportAMQP  = "amqp"
)

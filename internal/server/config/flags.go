package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
)

var serverFlags = []string{
	"-a", "-grpc", "-meta", "-d", "-s", "-t", "-r", "-store",
	"-u", "-p", "-b", "-g", "-e", "-path-style",
	"-presign-ttl", "-scratch", "-max-upload", "-l", "-metrics", "-shutdown-timeout",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            HTTP bind address (e.g., ":8080")
//	-grpc string         gRPC health bind address, empty disables
//	-meta string         metadata store: postgres | memory
//	-d string            PostgreSQL DSN
//	-s string            JWT HMAC secret key
//	-t int               access token validity, minutes
//	-r int               refresh token validity, minutes
//	-store string        object store: s3 | memory
//	-u string            S3 root user
//	-p string            S3 root password
//	-b string            S3 bucket name
//	-g string            S3 region
//	-e string            S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-path-style bool     S3 path-style addressing
//	-presign-ttl dur     preview URL lifetime (e.g., "5m")
//	-scratch string      archive scratch directory
//	-max-upload int      max upload request size, bytes
//	-l string            log level
//	-metrics bool        expose /metrics
//	-shutdown-timeout dur
//
// Boolean flags must be written as -flag=value when followed by another
// argument, since flagx.FilterArgs treats the next bare token as a value.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.MetadataStore, "meta", config.MetadataStore, "metadata store (postgres|memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.ObjectStore, "store", config.ObjectStore, "object store (s3|memory)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.BoolVar(&config.S3ForcePathStyle, "path-style", config.S3ForcePathStyle, "S3 path-style addressing")

	fs.DurationVar(&config.PresignTTL, "presign-ttl", config.PresignTTL, "preview URL lifetime")
	fs.StringVar(&config.ScratchDir, "scratch", config.ScratchDir, "archive scratch directory")
	fs.Int64Var(&config.MaxUploadBytes, "max-upload", config.MaxUploadBytes, "max upload size in bytes")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.MetricsEnabled, "metrics", config.MetricsEnabled, "expose /metrics")
	fs.DurationVar(&config.ShutdownTimeout, "shutdown-timeout", config.ShutdownTimeout, "graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}

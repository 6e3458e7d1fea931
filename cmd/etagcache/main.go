package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/etagcache/etagcache"
	"github.com/etagcache/etagcache/cache"
	"github.com/etagcache/etagcache/internal/demoapp"
	"github.com/etagcache/etagcache/store"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	providerFlag       string
	cacheFileFlag      string
	redisAddrFlag      string
	storeFileFlag      string
	prefixFlag         string
	noReadFlag         bool
	noHooksFlag        bool
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&providerFlag, "provider", "sqlite", "Cache provider to use (memory, sqlite or redis)")
	flag.StringVar(&cacheFileFlag, "cache-db", "cache.db", "Cache DB file name for the sqlite provider (use 'memory' for an in-memory db)")
	flag.StringVar(&redisAddrFlag, "redis", "localhost:6379", "Redis address for the redis provider")
	flag.StringVar(&storeFileFlag, "store-db", "store.db", "Store DB file name (use 'memory' for an in-memory store)")
	flag.StringVar(&prefixFlag, "prefix", "", "URL prefix the application is mounted under")
	flag.BoolVar(&noReadFlag, "no-read", false, "Disable the read path (writer-only deployment)")
	flag.BoolVar(&noHooksFlag, "no-hooks", false, "Disable invalidation hooks (reader-only deployment)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	config := Config{
		Port:         portFlag,
		Provider:     providerFlag,
		CacheFile:    cacheFileFlag,
		RedisAddr:    redisAddrFlag,
		StoreFile:    storeFileFlag,
		Prefix:       prefixFlag,
		DisableRead:  noReadFlag,
		DisableHooks: noHooksFlag,
	}
	if configFilenameFlag != "" {
		fileConfig, err := getConfig(configFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot read config file")
		}
		config = fileConfig
		if config.Port == 0 {
			config.Port = portFlag
		}
	}

	// cache backend
	var provider cache.CacheProvider
	switch config.Provider {
	case "memory":
		provider = cache.NewMemCache()
	case "sqlite":
		filename := config.CacheFile
		if filename == "memory" {
			filename = "file::memory:?cache=shared"
		}
		provider = cache.NewSQLiteCache(filename)
	case "redis":
		provider = cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: config.RedisAddr}))
	default:
		log.Fatal().Msgf("Unsupported cache provider: %s", config.Provider)
	}

	// storage collaborator
	var st store.Store
	if config.StoreFile == "memory" {
		st = store.NewMemory()
	} else {
		sqliteStore, err := store.NewSQLite(config.StoreFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot open store")
		}
		st = sqliteStore
	}

	ecache := etagcache.New(etagcache.Config{
		Cache:            provider,
		Negotiate:        demoapp.Negotiate,
		Principal:        demoapp.Principal,
		DefaultMediaType: demoapp.DefaultMediaType,
		Prefix:           config.Prefix,
		DisableRead:      config.DisableRead,
	})
	if !config.DisableHooks {
		ecache.Invalidator().Bind(st)
	}

	app := demoapp.New(st, log.Logger)

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	// chi routes by the path inside the mount; the middleware sees the
	// full path and strips the prefix itself during scope classification
	mux.Mount(or(config.Prefix, "/"), ecache.Middleware(app))

	log.Info().Msgf("Serving on port %v (provider %s)", config.Port, config.Provider)
	err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), mux)

	if err != nil {
		panic(err)
	}
}

func or(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

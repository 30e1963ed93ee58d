// Command tokenkit-server runs the reference token HTTP host.
//
// Engine settings come from LoadConfig (CONFIG_PATH file plus environment). Server
// settings come from the environment:
//
//	HTTP_ADDR           listen address (default :8080)
//	REDIS_ADDR          denylist Redis; empty starts an in-process miniredis
//	REDIS_PREFIX        denylist key prefix
//	LOG_LEVEL           logrus level (default info)
//	BOOTSTRAP_USERNAME  optional user created at start
//	BOOTSTRAP_PASSWORD
//	BOOTSTRAP_SUBJECT   user-id claim for the bootstrap user (default: username)
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/tokenkit"
	"github.com/MrEthical07/tokenkit/credentials"
	"github.com/MrEthical07/tokenkit/httpapi"
	promexport "github.com/MrEthical07/tokenkit/metrics/export/prometheus"
	"github.com/MrEthical07/tokenkit/revocation"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type serverConfig struct {
	Addr              string        `env:"HTTP_ADDR" env-default:":8080"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisPrefix       string        `env:"REDIS_PREFIX" env-default:"tk:revoked"`
	LogLevel          string        `env:"LOG_LEVEL" env-default:"info"`
	BootstrapUsername string        `env:"BOOTSTRAP_USERNAME"`
	BootstrapPassword string        `env:"BOOTSTRAP_PASSWORD"`
	BootstrapSubject  string        `env:"BOOTSTRAP_SUBJECT"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	var srvCfg serverConfig
	if err := cleanenv.ReadEnv(&srvCfg); err != nil {
		logger.WithError(err).Fatal("Failed to read server configuration")
	}
	if lvl, err := logrus.ParseLevel(srvCfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	cfg, err := tokenkit.LoadConfig("")
	if err != nil {
		logger.WithError(err).Fatal("Failed to load token configuration")
	}

	rdb, stopRedis, err := initRedis(srvCfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Redis")
	}
	defer stopRedis()

	engine, err := tokenkit.New().
		WithConfig(cfg).
		WithRevocation(revocation.NewRedisStore(rdb, srvCfg.RedisPrefix)).
		WithLogger(logger).
		WithAuditSink(tokenkit.NewJSONWriterSink(os.Stdout)).
		Build()
	if err != nil {
		logger.WithError(err).Fatal("Failed to build token engine")
	}
	defer engine.Close()

	users, err := initCredentials(srvCfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize credentials")
	}

	router := mux.NewRouter()
	router.Use(httpapi.RequestLogger(logger))
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promexport.Handler(engine)).Methods(http.MethodGet)
	httpapi.New(engine, users, logger).Routes(router)

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":      srvCfg.Addr,
			"algorithm": engine.Codec().Algorithm(),
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server exited")
}

func initRedis(cfg serverConfig, logger *logrus.Logger) (*redis.Client, func(), error) {
	addr := cfg.RedisAddr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		if mr, err = miniredis.Run(); err != nil {
			return nil, nil, err
		}
		addr = mr.Addr()
		logger.Warn("REDIS_ADDR not set, using in-process miniredis; revocations will not survive restart")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
		return nil, nil, err
	}
	logger.WithField("addr", addr).Info("Redis client initialized")

	return rdb, func() {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}

func initCredentials(cfg serverConfig) (*credentials.Store, error) {
	hasher, err := credentials.NewHasher(credentials.DefaultHashConfig())
	if err != nil {
		return nil, err
	}
	store, err := credentials.NewStore(hasher)
	if err != nil {
		return nil, err
	}
	if cfg.BootstrapUsername == "" {
		return store, nil
	}
	subject := cfg.BootstrapSubject
	if subject == "" {
		subject = cfg.BootstrapUsername
	}
	if err := store.Add(cfg.BootstrapUsername, subject, cfg.BootstrapPassword, true); err != nil {
		return nil, err
	}
	return store, nil
}

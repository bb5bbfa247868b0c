package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"driveon/internal/db"
	"driveon/internal/platform/config"
	phttp "driveon/internal/platform/http"
	"driveon/internal/platform/logger"
	"driveon/internal/platform/rate"

	authhttp "driveon/internal/modules/auth/http"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer log.Sync()

	dbpool, err := db.Open(context.Background(), cfg.PGDSN)
	if err != nil {
		log.Fatal("postgres unavailable", zap.Error(err))
	}
	defer dbpool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
	limiter := rate.NewLimiter(rdb, cfg.ResendCooldown, cfg.ResendWindow, cfg.ResendMaxInWindow)

	authModule := authhttp.NewModulePG(dbpool, cfg, log).WithLimiter(limiter)
	app := phttp.NewServer(phttp.Options{AppName: "driveon-auth"}, authModule)

	go reapExpiredCodes(authModule, log)

	log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// reapExpiredCodes periodically drops expired one-time codes. Pure
// housekeeping: verification checks expiry on its own.
func reapExpiredCodes(m *authhttp.Module, log *zap.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		n, err := m.Codes().DeleteExpired(ctx)
		cancel()
		if err != nil {
			log.Warn("otp reaper sweep failed", zap.Error(err))
			continue
		}
		if n > 0 {
			log.Info("expired codes reaped", zap.Int64("count", n))
		}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"evcoupon/bot"
	"evcoupon/entity"
	"evcoupon/impl/auth"
	"evcoupon/impl/core"
	"evcoupon/impl/coupon"
	"evcoupon/internal/config"
	"evcoupon/internal/database"
	"evcoupon/internal/http-server/api"
	"evcoupon/internal/storage/memory"
	"evcoupon/internal/storage/mysql"
	"evcoupon/internal/storage/postgres"
	"evcoupon/lib/clock"
	"evcoupon/lib/logger"
	"evcoupon/lib/sl"
)

const logFileName = "evcoupon.log"

type couponStore interface {
	coupon.Store
	SaveEvent(ctx context.Context, event *entity.Event) error
}

// directory resolves operators for authentication and scan responses.
type directory interface {
	OperatorByToken(token string) (*entity.Operator, error)
	OperatorByID(id int64) (*entity.Operator, error)
	SaveOperator(op *entity.Operator) error
}

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	lg.Info("starting evcoupon", slog.String("config", *configPath), slog.String("env", conf.Env))

	var tg *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tg, err = bot.NewTgBot(conf.Telegram.ApiKey, lg, bot.Config{
			ChatIDs:        conf.Telegram.ChatIDs,
			DigestTopics:   conf.Telegram.DigestTopics,
			DigestInterval: time.Duration(conf.Telegram.DigestMinutes) * time.Minute,
		})
		if err != nil {
			lg.Error("telegram bot", sl.Err(err))
		} else {
			lg = logger.WithTelegram(lg, tg, logger.ParseLevel(conf.Telegram.MinLevel))
			go func() {
				if err := tg.Start(); err != nil {
					lg.Error("telegram bot stopped", sl.Err(err))
				}
			}()
			defer tg.Stop()
		}
	}

	loc, err := time.LoadLocation(conf.Location)
	if err != nil {
		log.Fatalf("location %q: %v", conf.Location, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, conf)
	if err != nil {
		lg.Error("storage", sl.Err(err))
		return
	}
	defer closeStore()
	lg.Info("storage ready", slog.String("driver", conf.Storage.Driver))

	dir := operatorDirectory(conf, store, lg)
	if err = seed(ctx, conf, store, dir); err != nil {
		lg.Error("seed", sl.Err(err))
		return
	}

	coupons := coupon.New(store, clock.System(), lg,
		coupon.WithOperators(dir),
		coupon.WithLocation(loc),
	)
	handler := core.New(coupons, lg)
	handler.SetAuthService(auth.New(dir))

	server := api.New(conf, lg, handler)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("server shutdown", sl.Err(err))
		}
	}()

	if err = server.Start(); err != nil {
		lg.Error("server stopped", sl.Err(err))
	}
	lg.Info("evcoupon stopped")
}

func openStore(ctx context.Context, conf *config.Config) (couponStore, func(), error) {
	switch conf.Storage.Driver {
	case config.DriverMemory:
		return memory.New(), func() {}, nil
	case config.DriverMySQL:
		s, err := mysql.NewSQLClient(conf)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, conf.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}

// operatorDirectory prefers mongo; otherwise operators live in memory and only the seeded admin exists.
func operatorDirectory(conf *config.Config, store couponStore, lg *slog.Logger) directory {
	if mongo := database.NewMongoClient(conf); mongo != nil {
		if err := mongo.EnsureIndexes(); err != nil {
			lg.Warn("mongo indexes", sl.Err(err))
		}
		return mongo
	}
	if mem, ok := store.(*memory.Store); ok {
		return mem
	}
	return memory.New()
}

func seed(ctx context.Context, conf *config.Config, store couponStore, dir directory) error {
	if conf.Seed.EventID != "" {
		err := store.SaveEvent(ctx, &entity.Event{
			ID:       conf.Seed.EventID,
			Title:    conf.Seed.EventTitle,
			StartsAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("event: %w", err)
		}
	}
	if conf.Seed.AdminToken != "" {
		_, err := dir.OperatorByToken(conf.Seed.AdminToken)
		if errors.Is(err, entity.ErrNotFound) {
			err = dir.SaveOperator(&entity.Operator{
				ID:    1,
				Name:  "admin",
				Token: conf.Seed.AdminToken,
				Role:  entity.RoleAdmin,
			})
		}
		if err != nil {
			return fmt.Errorf("admin operator: %w", err)
		}
	}
	return nil
}

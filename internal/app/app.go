package app

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"holesync/internal/app/server"
	"holesync/internal/config"
	"holesync/internal/history"
	"holesync/internal/support"
	"holesync/internal/syncer"
)

const defaultPort = 8083

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	inventoryFlag := flag.String("inventory", "devices.yaml", "Path to the device inventory file")
	portFlag := flag.Int("port", defaultPort, "Port for the daemon API server")
	onceFlag := flag.Bool("once", false, "Run a single sync and exit instead of starting the daemon")
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugFlag {
		log.SetLevel(log.DebugLevel)
	}

	config.ReadSettings()

	devices, err := config.LoadInventory(*inventoryFlag)
	if err != nil {
		return err
	}

	cfg := config.GetConfig()

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg)
		if err != nil {
			log.Warn("Run history disabled", "error", err)
		} else {
			defer func() {
				if err := store.Close(); err != nil {
					log.Warn("error closing history store", "error", err)
				}
			}()
		}
	}

	service, err := syncer.NewService(devices, store)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Redis.Enabled {
		defer func() {
			if err := support.CloseRedisClient(); err != nil {
				log.Warn("error closing redis client", "error", err)
			}
		}()
	}

	if *onceFlag {
		// One-shot mode always finishes with a report; per-device failures
		// live in the report, not in the exit code.
		_, err := service.Run(ctx, "cli")
		return err
	}

	go service.StartScheduler(ctx)

	port := support.GetEnvInt("PORT", *portFlag)
	return server.OpenRoutes(ctx, port, service)
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/javi11/apphost/db"
	"github.com/javi11/apphost/internal/adminpanel"
	"github.com/javi11/apphost/internal/config"
	"github.com/javi11/apphost/internal/host"
	"github.com/javi11/apphost/internal/jobs"
	"github.com/javi11/apphost/internal/serverinfo"
	"github.com/natefinch/lumberjack"
	"github.com/spf13/cobra"

	_ "github.com/mattn/go-sqlite3"
)

var Version = "dev"
var configFile string

var rootCmd = &cobra.Command{
	Use:   "apphost",
	Short: "Hosts application runtimes with hot restart and scheduled jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Read the config file
		config, err := config.FromFile(configFile)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load config file", "err", err)
			os.Exit(1)
		}

		// Setup logger
		options := &slog.HandlerOptions{}

		if config.Debug {
			options.Level = slog.LevelDebug
		}

		jsonHandler := slog.NewJSONHandler(
			io.MultiWriter(
				os.Stdout,
				&lumberjack.Logger{
					Filename:   config.LogPath,
					MaxSize:    5,
					MaxAge:     14,
					MaxBackups: 5,
				}), options)
		log := slog.New(jsonHandler)

		log.InfoContext(ctx, fmt.Sprintf("Starting apphost %s", Version))

		sqlLite, err := db.NewDB(config.DBPath)
		if err != nil {
			log.ErrorContext(ctx, "Failed to open database", "err", err)
			os.Exit(1)
		}
		defer sqlLite.Close()

		h, err := host.New(config, jobs.NewStore(sqlLite), log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to build host", "err", err)
			os.Exit(1)
		}

		if err := h.Start(ctx); err != nil {
			log.ErrorContext(ctx, "Some apps failed to start", "err", err)
		}

		serverInfo := serverinfo.NewServerInfo(h, Version)

		adminPanel := adminpanel.New(h, serverInfo, log, config.Debug)
		go func() {
			if err := adminPanel.Start(ctx, config.ApiPort); err != nil {
				stop()
			}
		}()

		<-ctx.Done()
		log.Info("Shutting down")

		if err := h.Stop(); err != nil {
			log.Error("Failed to stop host cleanly", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configFile, "config", "c", "", "path to YAML config file")
	err := rootCmd.MarkPersistentFlagRequired("config")
	if err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/awaistahir/energyscore/internal/monitor"
	"github.com/awaistahir/energyscore/internal/source"
	"github.com/awaistahir/energyscore/internal/store"
	"github.com/awaistahir/energyscore/internal/uiapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var port int
	var dbPath string
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "energyscored",
		Short: "EnergyScore monitoring daemon with HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			} else {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				viper.AddConfigPath(filepath.Join(home, ".energyscore"))
				viper.SetConfigName("config")
				viper.SetConfigType("yaml")
			}
			viper.SetDefault("source.base_url", "http://homeassistant.local:8123")
			viper.SetDefault("monitor.interval_minutes", 10)
			viper.AutomaticEnv()
			viper.ReadInConfig()

			// Set default db path
			if dbPath == "" {
				home, _ := os.UserHomeDir()
				dbPath = filepath.Join(home, ".energyscore", "energyscore.db")
			}

			// Open store
			st, err := store.NewStore(dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			src := source.NewClient(viper.GetString("source.base_url"), viper.GetString("source.token"))
			interval := time.Duration(viper.GetInt("monitor.interval_minutes")) * time.Minute

			mon, err := monitor.New(src, st, log.Default(), interval, nil)
			if err != nil {
				return fmt.Errorf("creating monitor: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go mon.Run(ctx)

			srv := &http.Server{
				Addr:    fmt.Sprintf(":%d", port),
				Handler: uiapi.NewServer(st, mon).Handler(),
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			log.Printf("EnergyScore daemon starting on port %d", port)
			log.Printf("Database: %s", dbPath)
			log.Printf("Source: %s", viper.GetString("source.base_url"))
			log.Printf("Refresh interval: %s", interval)

			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "Database path")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/awaistahir/energyscore/internal/monitor"
	"github.com/awaistahir/energyscore/internal/score"
	"github.com/awaistahir/energyscore/internal/source"
	"github.com/awaistahir/energyscore/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dbPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "energyscore",
		Short: "EnergyScore - Rate how well energy use matches cheap hours",
		Long: `EnergyScore tracks a cumulative energy meter against hourly electricity
prices and scores how well consumption lined up with the cheapest hours,
on a 0-100 scale over a rolling window.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.energyscore/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default is $HOME/.energyscore/energyscore.db)")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(sensorCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(refreshCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".energyscore")
		os.MkdirAll(configDir, 0755)

		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("source.base_url", "http://homeassistant.local:8123")
	viper.SetDefault("monitor.interval_minutes", 10)

	viper.AutomaticEnv()
	viper.ReadInConfig()

	// Set defaults
	if dbPath == "" {
		home, _ := os.UserHomeDir()
		dbPath = filepath.Join(home, ".energyscore", "energyscore.db")
	}
}

func newSourceClient() *source.Client {
	return source.NewClient(viper.GetString("source.base_url"), viper.GetString("source.token"))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the EnergyScore database and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := viper.SafeWriteConfig(); err != nil {
				// An existing config is fine.
				if _, ok := err.(viper.ConfigFileAlreadyExistsError); !ok {
					return err
				}
			}

			fmt.Println("✓ Initialized EnergyScore")
			fmt.Printf("Database: %s\n", dbPath)
			fmt.Println("\nNext steps:")
			fmt.Println("  1. Set source.base_url and source.token in the config file")
			fmt.Println("  2. Add a sensor: energyscore sensor add")
			fmt.Println("  3. Start the daemon: energyscored")

			return nil
		},
	}
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <entity-id> [entity-id...]",
		Short: "Fetch current entity states from the source API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client := newSourceClient()

			type entityReading struct {
				EntityID  string          `json:"entity_id"`
				State     string          `json:"state"`
				Semantics score.Semantics `json:"state_class,omitempty"`
			}

			readings := []entityReading{}
			for _, entity := range args {
				r, err := client.Reading(ctx, entity)
				if err != nil {
					return fmt.Errorf("fetching %s: %w", entity, err)
				}
				readings = append(readings, entityReading{
					EntityID:  entity,
					State:     r.State,
					Semantics: r.Semantics,
				})
			}

			// Output as JSON
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(readings)
		},
	}

	return cmd
}

func sensorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensor",
		Short: "Manage score sensors",
	}

	cmd.AddCommand(sensorAddCmd())
	cmd.AddCommand(sensorListCmd())
	cmd.AddCommand(sensorRemoveCmd())

	return cmd
}

func sensorAddCmd() *cobra.Command {
	var cfg score.Config

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new score sensor",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SaveSensor(cfg); err != nil {
				return err
			}

			fmt.Printf("✓ Added sensor: %s\n", cfg.Name)
			fmt.Printf("  Energy entity: %s\n", cfg.EnergyEntity)
			fmt.Printf("  Price entity: %s\n", cfg.PriceEntity)
			fmt.Printf("  Rolling hours: %d\n", cfg.RollingHours)

			return nil
		},
	}

	cmd.Flags().StringVarP(&cfg.Name, "name", "n", "", "Sensor name (required)")
	cmd.Flags().StringVarP(&cfg.EnergyEntity, "energy", "e", "", "Cumulative energy entity ID (required)")
	cmd.Flags().StringVarP(&cfg.PriceEntity, "price", "p", "", "Electricity price entity ID (required)")
	cmd.Flags().IntVar(&cfg.RollingHours, "rolling-hours", score.DefaultRollingHours, "Trailing window in hours (2-168)")
	cmd.Flags().Float64Var(&cfg.EnergyThreshold, "energy-threshold", 0, "Ignore hours below this share of total use (0-1)")

	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("energy")
	cmd.MarkFlagRequired("price")

	return cmd
}

func sensorListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all score sensors",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			configs, err := st.GetSensors()
			if err != nil {
				return err
			}

			if len(configs) == 0 {
				fmt.Println("No sensors configured")
				return nil
			}

			fmt.Printf("%-20s %-30s %-30s %8s\n", "NAME", "ENERGY", "PRICE", "HOURS")
			fmt.Println("------------------------------------------------------------------------------------------")

			for _, cfg := range configs {
				fmt.Printf("%-20s %-30s %-30s %8d\n",
					cfg.Name, cfg.EnergyEntity, cfg.PriceEntity, cfg.RollingHours)
			}

			return nil
		},
	}
}

func sensorRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a score sensor and its persisted state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteSensor(args[0]); err != nil {
				return err
			}

			fmt.Printf("✓ Removed sensor: %s\n", args[0])
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [name]",
		Short: "Show the persisted snapshots for one or all sensors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			configs, err := st.GetSensors()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				filtered := []score.Config{}
				for _, cfg := range configs {
					if cfg.Name == args[0] {
						filtered = append(filtered, cfg)
					}
				}
				configs = filtered
				if len(configs) == 0 {
					return fmt.Errorf("sensor not found: %s", args[0])
				}
			}

			type sensorStatus struct {
				Name    string `json:"name"`
				Score   string `json:"score"`
				Cost    string `json:"cost"`
				Savings string `json:"savings"`
			}

			results := []sensorStatus{}
			for _, cfg := range configs {
				status := sensorStatus{Name: cfg.Name, Score: "unknown", Cost: "unknown", Savings: "unknown"}
				if state, err := st.GetSnapshot(cfg.Name, store.KindScore, nil); err == nil {
					status.Score = state
				}
				if state, err := st.GetSnapshot(cfg.Name, store.KindCost, nil); err == nil {
					status.Cost = state
				}
				if state, err := st.GetSnapshot(cfg.Name, store.KindSavings, nil); err == nil {
					status.Savings = state
				}
				results = append(results, status)
			}

			// Output as JSON
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [name]",
		Short: "Run one refresh cycle for one or all sensors",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, err := store.NewStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			logger := log.New(io.Discard, "", 0)
			mon, err := monitor.New(newSourceClient(), st, logger, 0, nil)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				if err := mon.RefreshOne(ctx, args[0]); err != nil {
					return err
				}
			} else {
				mon.RefreshAll(ctx)
			}

			for _, cfg := range mon.Sensors() {
				snap, _, _, ok := mon.Snapshots(cfg.Name)
				if !ok {
					continue
				}
				fmt.Printf("%s: score %d (quality %.2f)\n", cfg.Name, snap.Score, snap.Quality)
			}

			return nil
		},
	}
}

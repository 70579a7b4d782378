package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simresglp/simulator/internal/config"
	"github.com/simresglp/simulator/internal/database"
	"github.com/simresglp/simulator/internal/export"
	"github.com/simresglp/simulator/internal/montecarlo"
)

var (
	sweepDB       string // SQLite file the sweep persists into
	sweepName     string // Experiment name
	sweepReplicas int    // Replicas per design cell
	sweepWorkers  int    // Concurrent replica workers
	sweepBaseSeed int64  // Base seed of the per-cell seed rule
	sweepDays     int    // Simulation horizon in days
	sweepCSV      string // Replica table output path
	sweepJSON     string // Experiment summary output path
)

// sweepCmd runs the full 2x3 factorial design synchronously
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the 2x3 capacity-by-disruption factorial sweep",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := database.NewDatabase(sweepDB)
		if err != nil {
			logrus.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		repo := database.NewRepository(db)
		executor := montecarlo.NewExecutor(repo, logrus.StandardLogger())

		exp, rows, err := executor.RunFactorial(ctx, montecarlo.FactorialOptions{
			Nombre:          sweepName,
			ReplicasPerCell: sweepReplicas,
			MaxWorkers:      sweepWorkers,
			BaseSeed:        sweepBaseSeed,
			SimulationDays:  sweepDays,
		})
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}

		fmt.Printf("Experiment %d (%s): %d replicas across 6 cells\n", exp.ID, exp.Nombre, exp.NumReplicas)
		for _, key := range []string{
			"nivel_servicio_mean", "nivel_servicio_std",
			"autonomia_promedio_mean", "demanda_insatisfecha_mean",
		} {
			if v, ok := exp.ResultadosAgregados[key]; ok {
				fmt.Printf("  %-28s %10.2f\n", key, v)
			}
		}

		if sweepCSV != "" {
			if err := export.WriteFactorialCSV(sweepCSV, rows); err != nil {
				logrus.Fatalf("Could not write replica table: %v", err)
			}
			logrus.Infof("Replica table written to %s", sweepCSV)
		}
		if sweepJSON != "" {
			if err := export.WriteJSON(sweepJSON, exp); err != nil {
				logrus.Fatalf("Could not write experiment summary: %v", err)
			}
			logrus.Infof("Experiment summary written to %s", sweepJSON)
		}
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepDB, "db", config.DefaultDBPath, "SQLite database file")
	sweepCmd.Flags().StringVar(&sweepName, "name", "", "Experiment name (defaults to Factorial-2x3-<replicas>rep)")
	sweepCmd.Flags().IntVar(&sweepReplicas, "replicas", montecarlo.DefaultReplicas, "Replicas per design cell")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", montecarlo.DefaultPoolWorkers, "Concurrent replica workers")
	sweepCmd.Flags().Int64Var(&sweepBaseSeed, "base-seed", 42, "Base seed of the per-cell seed rule")
	sweepCmd.Flags().IntVar(&sweepDays, "days", 365, "Simulation horizon in days")
	sweepCmd.Flags().StringVar(&sweepCSV, "csv", "", "Write the per-replica KPI table to this CSV path")
	sweepCmd.Flags().StringVar(&sweepJSON, "json", "", "Write the experiment summary as JSON to this path")
	rootCmd.AddCommand(sweepCmd)
}

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/simresglp/simulator/internal/config"
	"github.com/simresglp/simulator/internal/database"
)

func main() {
	dbPath := flag.String("db", config.FromEnv().DBPath, "Path to SQLite database file")
	flag.Parse()

	// Connect to database
	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	configs, err := repo.ListConfiguraciones(0, 1000)
	if err != nil {
		log.Fatalf("Failed to list configurations: %v", err)
	}
	fmt.Printf("Found %d configurations:\n\n", len(configs))
	for _, cfg := range configs {
		fmt.Printf("ID: %d\n", cfg.ID)
		fmt.Printf("Nombre: %s\n", cfg.Nombre)
		if cfg.Descripcion != nil {
			fmt.Printf("Descripción: %s\n", *cfg.Descripcion)
		}
		fmt.Printf("Creada: %s\n", cfg.CreadaEn.Format("2006-01-02 15:04:05"))
		fmt.Println("---")
	}

	exps, err := repo.ListExperimentos(0, 1000)
	if err != nil {
		log.Fatalf("Failed to list experiments: %v", err)
	}
	fmt.Printf("\nFound %d Monte Carlo experiments:\n\n", len(exps))
	for _, exp := range exps {
		fmt.Printf("ID: %d\n", exp.ID)
		fmt.Printf("Nombre: %s\n", exp.Nombre)
		fmt.Printf("Estado: %s (%d%%)\n", exp.Estado, exp.Progreso)
		fmt.Printf("Iniciado: %s\n", exp.IniciadoEn.Format("2006-01-02 15:04:05"))
		if exp.CompletadoEn != nil {
			fmt.Printf("Completado: %s\n", exp.CompletadoEn.Format("2006-01-02 15:04:05"))
		}

		// Get replica count
		if n, err := repo.CountReplicas(exp.ID); err == nil {
			fmt.Printf("Réplicas: %d\n", n)
		}
		fmt.Println("---")
	}

	sims, err := repo.ListSimulaciones(nil, 0, 1000)
	if err != nil {
		log.Fatalf("Failed to list simulations: %v", err)
	}
	fmt.Printf("\nFound %d standalone simulations:\n\n", len(sims))
	for _, sim := range sims {
		fmt.Printf("ID: %d\n", sim.ID)
		fmt.Printf("Estado: %s\n", sim.Estado)
		fmt.Printf("Ejecutada: %s\n", sim.EjecutadaEn.Format("2006-01-02 15:04:05"))
		if sim.NivelServicioPct != nil {
			fmt.Printf("Nivel de servicio: %.2f%%\n", *sim.NivelServicioPct)
		}
		fmt.Println("---")
	}
}

package main

import (
	"context"
	"fmt"
	"log"

	"social-system/config"
	"social-system/internal/graph"
	"social-system/internal/model"
	"social-system/internal/repository"
	dbPkg "social-system/pkg/db"

	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()

	db, err := dbPkg.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	fmt.Println("Database connected successfully")
	fmt.Printf("Driver: %s Database: %s\n", cfg.Database.Driver, cfg.Database.Database)

	models := model.All()
	tables := make([]string, 0, len(models))
	for _, m := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			log.Fatalf("Parse model failed: %v", err)
		}
		tables = append(tables, stmt.Schema.Table)
	}

	fmt.Printf("\nWARNING: This operation will CLEAR ALL DATA in tables %v!\n", tables)
	fmt.Print("Type 'YES' to confirm: ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "YES" {
		fmt.Println("Operation cancelled")
		return
	}

	if cfg.Database.Driver == "mysql" {
		_ = db.Exec("SET FOREIGN_KEY_CHECKS=0").Error
	}

	// 子表先清
	for i := len(tables) - 1; i >= 0; i-- {
		table := tables[i]
		fmt.Printf("Clearing table %s... ", table)
		if err := db.Exec(fmt.Sprintf("DELETE FROM %s", db.Statement.Quote(table))).Error; err != nil {
			fmt.Printf("Failed: %v\n", err)
		} else {
			fmt.Println("Success")
		}
	}

	if cfg.Database.Driver == "mysql" {
		fmt.Println("\nResetting auto-increment IDs...")
		for _, table := range tables {
			if err := db.Exec(fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = 1", db.Statement.Quote(table))).Error; err != nil {
				fmt.Printf("Resetting %s failed: %v\n", table, err)
			}
		}
		_ = db.Exec("SET FOREIGN_KEY_CHECKS=1").Error
	}

	// 关系图同步清空：用空库状态重建
	if cfg.Graph.Driver == "neo4j" {
		ctx := context.Background()
		g, err := graph.NewNeo4jGraph(ctx, cfg.Graph)
		if err != nil {
			fmt.Printf("\nGraph not cleared: %v\n", err)
		} else {
			defer g.Close(ctx)
			if _, err := graph.NewReconciler(repository.NewStore(db), g, nil).Rebuild(ctx); err != nil {
				fmt.Printf("\nGraph not cleared: %v\n", err)
			} else {
				fmt.Println("\nGraph cleared")
			}
		}
	}

	fmt.Println("\nDatabase reset completed!")
	fmt.Println("All table data cleared, table structure preserved")
}

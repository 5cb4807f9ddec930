package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"social-system/config"
	"social-system/internal/graph"
	"social-system/internal/repository"
	dbPkg "social-system/pkg/db"
	"social-system/pkg/logger"
)

// 从关系库完整重建 neo4j 关系图，用于投影丢失后的人工修复
func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "rebuild timeout")
	dryRun := flag.Bool("dry-run", false, "only print snapshot sizes")
	flag.Parse()

	cfg := config.LoadConfig()
	logger.InitLogger(cfg.Log)
	defer logger.Sync()

	if cfg.Graph.Driver != "neo4j" {
		fmt.Printf("Graph driver is %q, nothing to rebuild\n", cfg.Graph.Driver)
		return
	}

	db, err := dbPkg.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	g, err := graph.NewNeo4jGraph(ctx, cfg.Graph)
	if err != nil {
		log.Fatalf("Graph connection failed: %v", err)
	}
	defer g.Close(context.Background())

	r := graph.NewReconciler(repository.NewStore(db), g, nil)

	var snap *graph.Snapshot
	if *dryRun {
		snap, err = r.Snapshot(ctx)
	} else {
		snap, err = r.Rebuild(ctx)
	}
	if err != nil {
		log.Fatalf("Rebuild failed: %v", err)
	}

	fmt.Printf("users=%d friendships=%d requests=%d blocks=%d\n",
		len(snap.Users), len(snap.Friendships), len(snap.Requests), len(snap.Blocks))
	if *dryRun {
		fmt.Println("Dry run, graph untouched")
	}
}

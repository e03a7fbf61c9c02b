// Command playtester drives a live game session from the terminal. It is a
// manual integration harness for the model backend: it starts a story, plays
// a number of turns and prints the transcript at the end.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/seralis/fableforge/internal/config"
	"github.com/seralis/fableforge/internal/service/ai"
	"github.com/seralis/fableforge/internal/service/save"
	"github.com/seralis/fableforge/internal/service/session"
	"github.com/seralis/fableforge/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.AI.Enabled() {
		log.Fatal("model backend not configured, set the ARK_* environment variables first")
	}

	turns := flag.Int("turns", 3, "number of turns to play after the opening scene")
	script := flag.String("script", "", "semicolon-separated actions; empty means take the first suggested action each turn")
	streaming := flag.Bool("stream", true, "print model chunks as they arrive")
	slot := flag.String("slot", "", "save slot to write when the run finishes")
	dbPath := flag.String("db", "", "sqlite database path; empty keeps everything in memory")
	timeout := flag.Duration("timeout", 120*time.Second, "total run timeout")

	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := ai.NewClient(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize model client: %v", err)
	}

	var store storage.Store
	if *dbPath != "" {
		sqliteStore, err := storage.OpenSQLite(*dbPath)
		if err != nil {
			log.Fatalf("failed to open save database: %v", err)
		}
		store = sqliteStore
	} else {
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	saves := save.NewService(store)
	manager := session.NewManager(ctx, client, saves)
	settings := manager.Settings()
	settings.StreamingEnabled = *streaming
	if _, err := manager.UpdateSettings(ctx, settings); err != nil {
		log.Fatalf("failed to apply settings: %v", err)
	}

	engine := manager.CreateSession(ctx)

	var onChunk func(string)
	if *streaming {
		onChunk = func(chunk string) { fmt.Print(chunk) }
	}

	log.Printf("starting story: model=%s turns=%d", client.ModelName(), *turns)

	if err := engine.StartNewGame(ctx, onChunk); err != nil {
		log.Fatalf("opening turn failed: %v", err)
	}
	fmt.Println()

	scripted := splitScript(*script)

	for i := 0; i < *turns; i++ {
		action := nextAction(engine, scripted, i)
		if action == "" {
			log.Printf("no action available at turn %d, stopping", i+1)
			break
		}

		log.Printf("turn %d: %s", i+1, action)
		if err := engine.PerformAction(ctx, action, onChunk); err != nil {
			log.Fatalf("turn %d failed: %v", i+1, err)
		}
		fmt.Println()
	}

	if *slot != "" {
		if _, err := engine.SaveTo(ctx, *slot, "Playtester run"); err != nil {
			log.Fatalf("failed to save slot %s: %v", *slot, err)
		}
		log.Printf("saved run to slot %s", *slot)
	}

	fmt.Println(engine.ExportTranscript())

	counters := engine.Counters()
	log.Printf("run complete: actions=%d locations=%d npcs=%d items=%d",
		counters.ActionsTaken, counters.LocationsVisited, counters.NPCsMet, counters.ItemsHeld)
}

func splitScript(script string) []string {
	if script == "" {
		return nil
	}
	parts := strings.Split(script, ";")
	actions := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			actions = append(actions, trimmed)
		}
	}
	return actions
}

func nextAction(engine *session.Engine, scripted []string, turn int) string {
	if turn < len(scripted) {
		return scripted[turn]
	}
	suggestions := engine.State().CurrentActions
	if len(suggestions) == 0 {
		return ""
	}
	return suggestions[0]
}

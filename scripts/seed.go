// Seed script for creating a pre-trained demo agent in FEPS.
// Run with: go run ./scripts/seed.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/Harshitk-cp/feps/internal/domain"
	"github.com/Harshitk-cp/feps/internal/service"
	"github.com/Harshitk-cp/feps/internal/store"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// The demo world is a looping corridor. The "corridor" token shows up at two
// different positions, entered and left by different actions, so one lap
// exercises the whole observe-predict-confirm cycle.
var corridorLap = []struct {
	action string
	next   string
}{
	{"forward", "corridor"},
	{"turn", "corridor"},
	{"forward", "door"},
	{"open", "wall"},
}

func main() {
	// Load environment
	envFile := os.Getenv("FEPS_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	backendName := os.Getenv("STORE_BACKEND")
	if backendName == "" {
		backendName = store.BackendSQLite
	}
	dsn := os.Getenv("DATABASE_URL")
	if backendName == store.BackendSQLite {
		dsn = os.Getenv("SQLITE_PATH")
		if dsn == "" {
			dsn = "feps.db"
		}
	}

	ctx := context.Background()

	backend, err := store.Open(ctx, backendName, dsn)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer backend.Close()

	if err := backend.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	if err := backend.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping store: %v", err)
	}

	fmt.Printf("Connected to store: %s\n", backend.Name())

	models := service.NewModelService(
		backend.Agents(),
		backend.Snapshots(),
		domain.ModelParams{Clones: 2, Gamma: 0.1, BaseReward: 1.0},
		zap.NewNop(),
	)

	// Create demo agent
	agent, err := models.CreateAgent(ctx, service.CreateAgentInput{
		ExternalID: "demo-agent-1",
		Name:       "Demo Corridor Agent",
		Vocabulary: []string{"wall", "corridor", "door"},
	})
	if errors.Is(err, service.ErrAgentConflict) {
		agent, err = models.LookupAgent(ctx, "demo-agent-1")
		if err != nil {
			log.Fatalf("Failed to look up existing agent: %v", err)
		}
		fmt.Println("Agent already exists, continuing training")
	} else if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}
	fmt.Printf("Created agent: %s (external_id: demo-agent-1)\n", agent.ID)

	// Walk the corridor a few laps so the snapshot ships with learned
	// transitions. The first lap is blind; later laps should predict.
	const laps = 4
	correct, total := 0, 0

	if _, err := models.Observe(ctx, agent.ID, "wall", ""); err != nil {
		log.Fatalf("Failed to observe: %v", err)
	}

	for lap := 0; lap < laps; lap++ {
		for _, step := range corridorLap {
			pred, err := models.Predict(ctx, agent.ID, step.action)
			if err != nil {
				log.Fatalf("Failed to predict: %v", err)
			}

			if _, err := models.Observe(ctx, agent.ID, step.next, step.action); err != nil {
				log.Fatalf("Failed to observe: %v", err)
			}

			if pred.NoData {
				continue
			}
			total++
			if pred.Observation == step.next {
				correct++
			}
			if _, err := models.ResolveOutcome(ctx, agent.ID, pred.Observation, step.next); err != nil {
				log.Fatalf("Failed to resolve outcome: %v", err)
			}
		}
	}
	fmt.Printf("Trained %d laps: %d/%d predictions correct\n", laps, correct, total)

	uncertainty, err := models.Uncertainty(ctx, agent.ID, "forward")
	if err != nil {
		log.Fatalf("Failed to compute uncertainty: %v", err)
	}
	fmt.Printf("Uncertainty for action \"forward\": %.2f\n", uncertainty)

	if err := models.Checkpoint(ctx, agent.ID); err != nil {
		log.Fatalf("Failed to checkpoint model: %v", err)
	}
	fmt.Println("Saved model snapshot")

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("\nTo test the API, use:")
	fmt.Printf("curl http://localhost:8080/v1/agents/%s\n", agent.ID)
	fmt.Printf("curl 'http://localhost:8080/v1/agents/demo-agent-1/prediction?action=forward'\n")
}

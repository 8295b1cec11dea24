package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/nlq-workbench/client/api/handlers"
	"github.com/nlq-workbench/client/internal/sim"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	stageDelayMS, err := strconv.Atoi(getEnv("STAGE_DELAY_MS", "400"))
	if err != nil {
		log.Fatalf("Invalid STAGE_DELAY_MS: %v", err)
	}

	// Initialize the pipeline simulator
	engine := sim.NewEngine(time.Duration(stageDelayMS) * time.Millisecond)
	server := sim.NewServer(engine)

	// Assemble routes
	r := handlers.NewRouter(server)

	// Start server
	log.Printf("Starting query pipeline simulator on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

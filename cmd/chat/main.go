package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nlq-workbench/client/internal/db"
	"github.com/nlq-workbench/client/internal/logger"
	"github.com/nlq-workbench/client/internal/model"
	"github.com/nlq-workbench/client/internal/protocol"
	"github.com/nlq-workbench/client/internal/repository"
	"github.com/nlq-workbench/client/internal/session"
)

func main() {
	// Get configuration from environment
	wsURL := getEnv("WS_URL", "ws://localhost:8080/ws/query")
	providerID := getEnv("PROVIDER_ID", "sql-postgres")
	dbPath := getEnv("DB_PATH", "data/conversations.db")
	transcriptDir := getEnv("TRANSCRIPT_DIR", "")

	// Ensure data directories exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database and repository
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	repo := repository.NewConversationRepository(database)

	// Optional session transcript
	var transcript *logger.TranscriptLogger
	if transcriptDir != "" {
		if err := os.MkdirAll(transcriptDir, 0755); err != nil {
			log.Fatalf("Failed to create transcript directory: %v", err)
		}
		path := filepath.Join(transcriptDir, fmt.Sprintf("session-%d.jsonl", time.Now().Unix()))
		transcript, err = logger.NewTranscriptLogger(path)
		if err != nil {
			log.Fatalf("Failed to create transcript: %v", err)
		}
		defer transcript.Close()
		transcript.WriteHeader(providerID, wsURL)
	}

	app := &chatApp{
		repo:       repo,
		transcript: transcript,
		providerID: providerID,
	}

	sess := session.New(session.Config{URL: wsURL})
	app.sess = sess

	sess.SetOnStateChange(func(state session.ConnState) {
		fmt.Printf("\n[connection: %s]\n", state)
	})
	sess.SetOnError(func(err error) {
		fmt.Printf("\n[error: %v]\n", err)
	})
	sess.SetOnMessage(app.handleMessage)

	sess.Connect()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down...")
		sess.Disconnect()
		db.CloseDB()
		os.Exit(0)
	}()

	fmt.Printf("Query assistant connected to %s (provider %s)\n", wsURL, providerID)
	fmt.Println("Type a question, /new for a new conversation, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit":
			sess.Disconnect()
			return
		case "/new":
			sess.NewConversation()
			fmt.Println("[started a new conversation]")
			continue
		}

		app.send(line)
	}

	sess.Disconnect()
}

// chatApp holds the consumer-side state of the chat loop.
type chatApp struct {
	sess       *session.QuerySession
	repo       *repository.ConversationRepository
	transcript *logger.TranscriptLogger
	providerID string

	lastQuery string
}

// send transmits one query and remembers its text for persistence when
// the result arrives.
func (a *chatApp) send(query string) {
	req := protocol.QueryRequest{
		ProviderID: a.providerID,
		Query:      query,
		Options: protocol.Options{
			TraceLevel:          "summary",
			EnableExecution:     false,
			MaxIterations:       3,
			ConfidenceThreshold: 0.7,
		},
	}

	if err := a.sess.SendQuery(req); err != nil {
		fmt.Printf("[send failed: %v]\n", err)
		return
	}
	a.lastQuery = query

	if a.transcript != nil {
		data, _ := json.Marshal(req)
		a.transcript.WriteOutbound("query", data)
	}
}

// handleMessage renders one inbound message and persists completed turns.
func (a *chatApp) handleMessage(env *protocol.Envelope) {
	if a.transcript != nil {
		a.transcript.WriteInbound(string(env.Type), env.Data)
	}

	switch env.Type {
	case protocol.KindProgress:
		payload, err := protocol.DecodeProgress(env.Data)
		if err != nil {
			return
		}
		fmt.Printf("  [%3.0f%%] %s: %s\n", payload.Progress*100, payload.Stage, payload.Message)

	case protocol.KindResult:
		payload, err := protocol.DecodeResult(env.Data)
		if err != nil {
			return
		}
		result := payload.Result
		fmt.Printf("\n%s\n(confidence %.2f, %s)\n", result.GeneratedQuery, result.ConfidenceScore, result.ValidationStatus)
		a.persistTurn(&result)

	case protocol.KindClarification:
		payload, err := protocol.DecodeClarification(env.Data)
		if err != nil {
			return
		}
		fmt.Println("\nThe assistant needs more detail:")
		for _, q := range payload.Questions {
			fmt.Printf("  - %s\n", q)
		}

	case protocol.KindError:
		payload, err := protocol.DecodeError(env.Data)
		if err != nil {
			return
		}
		fmt.Printf("\n[backend error: %s]\n", payload.Message)
	}
}

// persistTurn stores a completed turn under the active conversation.
func (a *chatApp) persistTurn(result *protocol.QueryResult) {
	ctx := context.Background()
	conversationID := a.sess.ConversationID()
	if conversationID == "" {
		return
	}

	exists, err := a.repo.Exists(ctx, conversationID)
	if err != nil {
		log.Printf("Failed to check conversation: %v", err)
		return
	}
	if !exists {
		now := time.Now()
		conv := &model.Conversation{
			ID:         conversationID,
			Title:      title(a.lastQuery),
			ProviderID: a.providerID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := a.repo.Create(ctx, conv); err != nil {
			log.Printf("Failed to create conversation: %v", err)
			return
		}
	}

	turn := &model.Turn{
		ID:               result.TurnID,
		ConversationID:   conversationID,
		Query:            a.lastQuery,
		GeneratedQuery:   result.GeneratedQuery,
		ConfidenceScore:  result.ConfidenceScore,
		ValidationStatus: result.ValidationStatus,
		Iterations:       result.Iterations,
		CreatedAt:        time.Now(),
	}
	if err := a.repo.AppendTurn(ctx, turn); err != nil {
		log.Printf("Failed to persist turn: %v", err)
	}
}

// title derives a conversation title from its first query.
func title(query string) string {
	const maxLen = 48
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen-3] + "..."
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ensembled/ensemble/pkg/api"
	"github.com/ensembled/ensemble/pkg/storage"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if a container runtime is not available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	// Verify podman is running.
	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("ensemble_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestPostgres_StartAndAppend(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, err := store.StartConversation(ctx, "what is raft?")
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	if !api.ValidateConversationID(id) {
		t.Errorf("conversation ID %q not valid", id)
	}

	msg, err := store.AddMessage(ctx, storage.AddMessageParams{
		ConversationID: id,
		Role:           api.RoleUser,
		Content:        "what is raft?",
	})
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if msg.ConversationID != id {
		t.Errorf("ConversationID = %q, want %q", msg.ConversationID, id)
	}

	history, err := store.History(ctx, id, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}
	if history[0].Content != "what is raft?" || history[0].Role != api.RoleUser {
		t.Errorf("unexpected message: %+v", history[0])
	}
}

func TestPostgres_AutoCreateConversation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	msg, err := store.AddMessage(ctx, storage.AddMessageParams{
		Role:    api.RoleUser,
		Content: "hello",
	})
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if msg.ConversationID == "" {
		t.Fatal("expected an auto-created conversation ID")
	}

	if _, err := store.History(ctx, msg.ConversationID, 0); err != nil {
		t.Errorf("History of auto-created conversation failed: %v", err)
	}
}

func TestPostgres_MetadataRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, _ := store.StartConversation(ctx, "")
	_, err := store.AddMessage(ctx, storage.AddMessageParams{
		ConversationID: id,
		Role:           api.RoleAssistant,
		Content:        "merged",
		Model:          "synthesis",
		Metadata:       map[string]string{"contributors": "a,b"},
	})
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	history, err := store.History(ctx, id, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history[0].Metadata["contributors"] != "a,b" {
		t.Errorf("metadata = %v, want contributors=a,b", history[0].Metadata)
	}
	if history[0].Model != "synthesis" {
		t.Errorf("model = %q, want synthesis", history[0].Model)
	}
}

func TestPostgres_HistoryOrderAndLimit(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, _ := store.StartConversation(ctx, "")
	for i := 0; i < 5; i++ {
		if _, err := store.AddMessage(ctx, storage.AddMessageParams{
			ConversationID: id,
			Role:           api.RoleUser,
			Content:        fmt.Sprintf("message %d", i),
		}); err != nil {
			t.Fatalf("AddMessage %d failed: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.History(ctx, id, 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len(history) = %d, want 5", len(all))
	}
	for i, m := range all {
		if m.Content != fmt.Sprintf("message %d", i) {
			t.Errorf("history[%d] = %q, want oldest first", i, m.Content)
		}
	}

	tail, err := store.History(ctx, id, 2)
	if err != nil {
		t.Fatalf("History with limit failed: %v", err)
	}
	if len(tail) != 2 || tail[0].Content != "message 3" || tail[1].Content != "message 4" {
		t.Errorf("expected the two most recent messages oldest first, got %v", tail)
	}
}

func TestPostgres_HistoryNotFound(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.History(context.Background(), "conv_000000000000000000000000", 0)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_AddMessageUnknownConversation(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.AddMessage(context.Background(), storage.AddMessageParams{
		ConversationID: "conv_000000000000000000000000",
		Role:           api.RoleUser,
		Content:        "hello",
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_Summary(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	first, _ := store.StartConversation(ctx, "")
	second, _ := store.StartConversation(ctx, "")

	add := func(conv, model string) {
		t.Helper()
		if _, err := store.AddMessage(ctx, storage.AddMessageParams{
			ConversationID: conv,
			Role:           api.RoleAssistant,
			Content:        "x",
			Model:          model,
		}); err != nil {
			t.Fatalf("AddMessage failed: %v", err)
		}
	}
	add(first, "model-a")
	add(first, "model-a")
	add(second, "model-b")

	sum, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.TotalConversations != 2 {
		t.Errorf("TotalConversations = %d, want 2", sum.TotalConversations)
	}
	if sum.TotalMessages != 3 {
		t.Errorf("TotalMessages = %d, want 3", sum.TotalMessages)
	}
	if len(sum.ModelUsage) != 2 || sum.ModelUsage[0].Model != "model-a" || sum.ModelUsage[0].Count != 2 {
		t.Errorf("ModelUsage = %v, want model-a first with count 2", sum.ModelUsage)
	}
	if sum.LatestConversationID != second {
		t.Errorf("LatestConversationID = %q, want %q", sum.LatestConversationID, second)
	}
}

func TestPostgres_TenantIsolation(t *testing.T) {
	store := setupTestDB(t)

	ctxA := storage.SetTenant(context.Background(), "tenant-a")
	ctxB := storage.SetTenant(context.Background(), "tenant-b")

	id, err := store.StartConversation(ctxA, "private")
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	if _, err := store.AddMessage(ctxA, storage.AddMessageParams{
		ConversationID: id,
		Role:           api.RoleUser,
		Content:        "secret",
	}); err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}

	// Tenant A can read.
	if _, err := store.History(ctxA, id, 0); err != nil {
		t.Fatalf("tenant A should see own conversation: %v", err)
	}

	// Tenant B cannot.
	if _, err := store.History(ctxB, id, 0); !errors.Is(err, storage.ErrNotFound) {
		t.Error("tenant B should not see tenant A's conversation")
	}

	// No tenant sees all (single-tenant mode).
	if _, err := store.History(context.Background(), id, 0); err != nil {
		t.Fatalf("no-tenant should see all: %v", err)
	}
}

func TestPostgres_HealthCheck(t *testing.T) {
	store := setupTestDB(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestPostgres_MigrationsIdempotent(t *testing.T) {
	store := setupTestDB(t)

	// Running the migrations a second time must be a no-op.
	if err := store.migrate(context.Background()); err != nil {
		t.Errorf("re-running migrations failed: %v", err)
	}
}

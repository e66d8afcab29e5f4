package history

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestPostgresStore runs against a real database when DATABASE_TEST_URL is set.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	// A second call must be harmless.
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() again error = %v", err)
	}

	// A kind unique to this run keeps List isolated from other rows.
	kind := "test-" + uuid.NewString()
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM import_runs WHERE kind = $1`, kind)
	})

	started := time.Now().UTC().Truncate(time.Microsecond)
	first := Run{ID: NewRunID(), Kind: kind, Status: StatusRunning, RequestID: "req-1", StartedAt: started}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	finished := started.Add(2 * time.Second)
	first.Status = "partial"
	first.Message = "Imported 1 of 2 categories"
	first.Successful, first.Failed = 1, 1
	first.FinishedAt = &finished
	first.Result = json.RawMessage(`{"status":"partial","successful":[{"key":"a"}]}`)
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}

	second := Run{ID: NewRunID(), Kind: kind, Status: StatusRunning, StartedAt: started.Add(time.Minute)}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() second error = %v", err)
	}

	t.Run("get", func(t *testing.T) {
		got, err := store.Get(ctx, first.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != "partial" || got.Message != first.Message || got.Successful != 1 || got.Failed != 1 {
			t.Errorf("Get() = %+v", got)
		}
		if got.RequestID != "req-1" || !got.StartedAt.Equal(started) {
			t.Errorf("request id %q started %v", got.RequestID, got.StartedAt)
		}
		if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
			t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
		}

		// JSONB normalizes whitespace, so compare decoded values.
		var want, have any
		_ = json.Unmarshal(first.Result, &want)
		if err := json.Unmarshal(got.Result, &have); err != nil {
			t.Fatalf("decode result %q: %v", got.Result, err)
		}
		if !reflect.DeepEqual(want, have) {
			t.Errorf("Result = %s, want %s", got.Result, first.Result)
		}
	})

	t.Run("get running", func(t *testing.T) {
		got, err := store.Get(ctx, second.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.FinishedAt != nil || got.Result != nil || got.Message != "" {
			t.Errorf("running run = %+v", got)
		}
	})

	t.Run("list", func(t *testing.T) {
		runs, err := store.List(ctx, Filter{Kind: kind})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(runs) != 2 || runs[0].ID != second.ID || runs[1].ID != first.ID {
			t.Fatalf("List() = %+v, want newest first", runs)
		}
		if runs[1].Result != nil {
			t.Error("List() must not load results")
		}

		runs, err = store.List(ctx, Filter{Kind: kind, Limit: 1})
		if err != nil || len(runs) != 1 {
			t.Errorf("List(limit 1) = %d runs, err %v", len(runs), err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
			if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%q) error = %v, want ErrNotFound", id, err)
			}
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		if err := store.Save(ctx, Run{ID: "nope", Kind: kind, Status: StatusRunning, StartedAt: started}); err == nil {
			t.Error("Save() with a non-uuid id should fail")
		}
	})
}

package storage

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestSelectLinksQuery(t *testing.T) {
	query, args, err := selectLinksQuery()
	if err != nil {
		t.Fatalf("selectLinksQuery: %v", err)
	}
	if query != "SELECT link FROM published_articles ORDER BY id" {
		t.Errorf("query = %q", query)
	}
	if len(args) != 0 {
		t.Errorf("args = %v", args)
	}
}

func TestInsertLinksQuery(t *testing.T) {
	query, args, err := insertLinksQuery([]string{"a", "b"})
	if err != nil {
		t.Fatalf("insertLinksQuery: %v", err)
	}
	want := "INSERT INTO published_articles (link) VALUES ($1),($2) ON CONFLICT (link) DO NOTHING"
	if query != want {
		t.Errorf("query = %q\nwant    %q", query, want)
	}
	if len(args) != 2 || args[0] != "a" || args[1] != "b" {
		t.Errorf("args = %v", args)
	}
}

// Runs against a real server only when FEEDPRESS_TEST_DATABASE_URL is set.
func TestPostgresStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("FEEDPRESS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FEEDPRESS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	s, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close()

	link := "https://drone.jp/test-" + strings.ReplaceAll(t.Name(), "/", "-")
	if err := s.Append(ctx, link); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, link); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	links, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	count := 0
	for _, l := range links {
		if l == link {
			count++
		}
	}
	if count != 1 {
		t.Errorf("link stored %d times, want 1", count)
	}
}

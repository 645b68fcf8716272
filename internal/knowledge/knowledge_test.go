package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSearchRanksByOverlap(t *testing.T) {
	corpus := NewCorpus(SeedDocuments()...)

	chunks, err := corpus.Search(context.Background(), "What is Docker?", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("Expected results for a docker query")
	}
	if chunks[0].SourceID != "devops.md" {
		t.Errorf("Expected devops.md as top source, got %s", chunks[0].SourceID)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Relevance > chunks[i-1].Relevance {
			t.Errorf("Results out of order at %d: %.3f > %.3f", i, chunks[i].Relevance, chunks[i-1].Relevance)
		}
	}
}

func TestSearchHonorsK(t *testing.T) {
	corpus := NewCorpus(SeedDocuments()...)

	chunks, err := corpus.Search(context.Background(), "python machine learning docker git", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(chunks) > 2 {
		t.Errorf("Expected at most 2 chunks, got %d", len(chunks))
	}
}

func TestSearchNoMatchReturnsEmpty(t *testing.T) {
	corpus := NewCorpus(SeedDocuments()...)

	chunks, err := corpus.Search(context.Background(), "xylophone zeppelin", 3)
	if err != nil {
		t.Fatalf("No match must not be an error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Expected no results, got %d", len(chunks))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	corpus := NewCorpus(SeedDocuments()...)

	chunks, err := corpus.Search(context.Background(), "   ", 3)
	if err != nil {
		t.Fatalf("Empty query must not be an error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Expected no results, got %d", len(chunks))
	}
}

func TestSearchCancelledContext(t *testing.T) {
	corpus := NewCorpus(SeedDocuments()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := corpus.Search(ctx, "docker", 3); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	content := "# Container Networking\n\nContainers attach to bridge networks by default."
	if err := os.WriteFile(filepath.Join(dir, "networking.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-markdown files are skipped.
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644)

	docs, err := LoadDirectory(dir)
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	if docs[0].Title != "Container Networking" {
		t.Errorf("Unexpected title: %q", docs[0].Title)
	}
	if docs[0].Source != "networking.md" {
		t.Errorf("Unexpected source: %q", docs[0].Source)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	corpus := NewCorpus()

	watcher, err := NewWatcher(corpus, dir)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	content := "# Terraform Basics\n\nTerraform declares infrastructure as code."
	if err := os.WriteFile(filepath.Join(dir, "terraform.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for corpus.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("Corpus never reloaded after file write")
		case <-time.After(20 * time.Millisecond):
		}
	}

	chunks, err := corpus.Search(context.Background(), "what is terraform", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0].SourceID != "terraform.md" {
		t.Errorf("Reloaded corpus not searchable: %+v", chunks)
	}
}

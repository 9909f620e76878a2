package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/directory-console/internal/core/usecase"
)

type backend struct {
	mu      sync.Mutex
	posts   []map[string]any
	created int
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sites/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"name":"Plombiers Paris","slug":"plombiers-paris","sirene_filters":{"codeNaf":"43.22A","codeDepartementEtablissement":"75"},"created_at":"2026-03-01T10:00:00Z"}]`)
	})
	mux.HandleFunc("POST /sites/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.created++
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":2,"name":"Electriciens","slug":"electriciens","created_at":"2026-03-01T10:00:00Z"}`)
	})
	mux.HandleFunc("GET /sites/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":1,"name":"Plombiers Paris","slug":"plombiers-paris","sirene_filters":{"codeNaf":"43.22A","codeDepartementEtablissement":"75"},"created_at":"2026-03-01T10:00:00Z"}`)
	})
	mux.HandleFunc("GET /sites/1/imports/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":4,"site_id":1,"status":"completed","total_imported":12,"total_closed":1,"total_errors":0,"created_at":"2026-03-01T10:00:00Z","updated_at":"2026-03-01T10:05:00Z"}]`)
	})
	mux.HandleFunc("POST /sites/1/imports/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.posts = append(b.posts, body)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":5,"site_id":1,"status":"queued","total_imported":0,"total_closed":0,"total_errors":0}`)
	})
	mux.HandleFunc("GET /sites/1/pages/8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":8,"site_id":1,"title":"Tarifs","slug":"tarifs","content":"Devis gratuit sous 24h","updated_at":"2026-03-01T10:00:00Z"}`)
	})
	mux.HandleFunc("GET /sites/1/establishments/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"site_id":1,"siren":"123456789","nic":"00011","siret":"12345678900011","business_name":"Dupont","postal_code":"75011","city":"Paris","is_active":true,"geo_lat":48.86,"geo_lon":2.38}]`)
	})
	return mux
}

func run(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("EXPORT_PATH", t.TempDir())

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Run(ctx, append([]string{"--api-url", serverURL, "--log-level", "error"}, args...), &out)
	return out.String(), err
}

func TestSitesListPrintsTable(t *testing.T) {
	server := httptest.NewServer((&backend{}).handler())
	defer server.Close()

	out, err := run(t, server.URL, "sites", "list")
	if err != nil {
		t.Fatalf("sites list error = %v", err)
	}
	if !strings.Contains(out, "plombiers-paris") || !strings.Contains(out, "43.22A") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestSitesCreateValidatesLocally(t *testing.T) {
	b := &backend{}
	server := httptest.NewServer(b.handler())
	defer server.Close()

	if _, err := run(t, server.URL, "sites", "create", "--name", "Electriciens"); err == nil {
		t.Fatal("expected validation error for a missing slug")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.created != 0 {
		t.Fatalf("backend must not be called, got %d creates", b.created)
	}
}

func TestImportsCreateDefaultsToSiteFilters(t *testing.T) {
	b := &backend{}
	server := httptest.NewServer(b.handler())
	defer server.Close()

	out, err := run(t, server.URL, "imports", "create", "1", "--city", "Paris")
	if err != nil {
		t.Fatalf("imports create error = %v", err)
	}
	if !strings.Contains(out, "import 5 queued") {
		t.Fatalf("unexpected output %q", out)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.posts) != 1 {
		t.Fatalf("expected one import post, got %d", len(b.posts))
	}
	got := b.posts[0]
	if got["naf_code"] != "43.22A" || got["department"] != "75" || got["city"] != "Paris" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestImportsWatchStopsWhenAllTerminal(t *testing.T) {
	server := httptest.NewServer((&backend{}).handler())
	defer server.Close()

	out, err := run(t, server.URL, "--output", "json", "imports", "watch", "1")
	if err != nil {
		t.Fatalf("imports watch error = %v", err)
	}
	// The last board printed is the one that ended the watch.
	var board usecase.ImportBoard
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		if err := dec.Decode(&board); err != nil {
			t.Fatalf("decode board: %v\n%s", err, out)
		}
	}
	if !board.AllTerminal || len(board.Jobs) != 1 || board.Jobs[0].Job.TotalImported != 12 {
		t.Fatalf("unexpected board %+v", board)
	}
}

func TestMapAndExport(t *testing.T) {
	server := httptest.NewServer((&backend{}).handler())
	defer server.Close()

	out, err := run(t, server.URL, "map", "1")
	if err != nil {
		t.Fatalf("map error = %v", err)
	}
	if !strings.Contains(out, "1 of 1 establishments geocoded") || !strings.Contains(out, "Dupont") {
		t.Fatalf("unexpected map output:\n%s", out)
	}

	out, err = run(t, server.URL, "--output", "json", "export", "1", "--active", "true")
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	var result usecase.ExportResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode export result: %v", err)
	}
	if result.Rows != 1 || result.Bytes == 0 {
		t.Fatalf("unexpected export result %+v", result)
	}
	if _, err := os.Stat(os.Getenv("EXPORT_PATH") + "/" + result.Key); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
}

func TestPagesShowPrintsContent(t *testing.T) {
	server := httptest.NewServer((&backend{}).handler())
	defer server.Close()

	out, err := run(t, server.URL, "pages", "show", "1", "8")
	if err != nil {
		t.Fatalf("pages show error = %v", err)
	}
	if !strings.Contains(out, "Tarifs") || !strings.Contains(out, "Devis gratuit sous 24h") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestMapWatchPrintsUntilCancelled(t *testing.T) {
	server := httptest.NewServer((&backend{}).handler())
	defer server.Close()
	t.Setenv("EXPORT_PATH", t.TempDir())

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err := Run(ctx, []string{"--api-url", server.URL, "--log-level", "error", "map", "1", "--watch"}, &out)
	if err != nil {
		t.Fatalf("map --watch error = %v", err)
	}
	if !strings.Contains(out.String(), "center 48.86000,2.38000") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestPromptPlaceholdersRunsOffline(t *testing.T) {
	out, err := run(t, "http://127.0.0.1:1", "prompts", "placeholders", "Plombiers a {ville} ({code_postal}) {{brut}}")
	if err != nil {
		t.Fatalf("placeholders error = %v", err)
	}
	if !strings.Contains(out, "ville\ncode_postal\n") || !strings.Contains(out, `{"ville": "", "code_postal": ""}`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRejectsUnknownOutputFormat(t *testing.T) {
	if _, err := run(t, "http://127.0.0.1:1", "--output", "yaml", "sites", "list"); err == nil {
		t.Fatal("expected error for unsupported output")
	}
}

func TestRejectsBadSiteID(t *testing.T) {
	server := httptest.NewServer((&backend{}).handler())
	defer server.Close()

	if _, err := run(t, server.URL, "map", "abc"); err == nil {
		t.Fatal("expected error for a non numeric site id")
	}
}

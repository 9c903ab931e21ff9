package sourcecheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/verity/internal/model"
)

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/full", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html><body><p>Le Rhône mesure 812 km de long.</p></body></html>")
	})
	mux.HandleFunc("/partial", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html><body><p>Le Rhône a une longueur de 812 km.</p></body></html>")
	})
	mux.HandleFunc("/silent", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html><body><p>Nothing relevant here.</p></body></html>")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/private/page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html><body>Le Rhône mesure 812 km</body></html>")
	})
	return httptest.NewServer(mux)
}

func newTestChecker(respectRobots bool) *Checker {
	return New(Options{
		Timeout:       5 * time.Second,
		UserAgent:     "Verity/0.1",
		MaxBodyBytes:  1 << 20,
		RespectRobots: respectRobots,
		Workers:       2,
	})
}

func claimFor(url string) string {
	return "Le Rhône mesure 812 km selon " + url + "."
}

func TestChecker_Verify(t *testing.T) {
	server := newTestServer()
	defer server.Close()
	checker := newTestChecker(false)

	tests := []struct {
		path     string
		expected model.Validity
		sources  int
	}{
		{"/full", model.ValidityTrue, 1},
		{"/partial", model.ValidityPartial, 1},
		{"/silent", model.ValidityAbsence, 0},
		{"/gone", model.ValidityFalse, 0},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result, err := checker.Verify(context.Background(), claimFor(server.URL+tt.path))
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if got := result.Validity(); got != tt.expected {
				t.Errorf("Expected %s, got %s (%s)", tt.expected, got, result.Details)
			}
			if len(result.Sources) != tt.sources {
				t.Errorf("Expected %d supporting sources, got %v", tt.sources, result.Sources)
			}
			if !result.Usable() {
				t.Error("Expected usable result")
			}
		})
	}
}

func TestChecker_Verify_NoSources(t *testing.T) {
	_, err := newTestChecker(false).Verify(context.Background(), "Le Rhône mesure 812 km.")
	if !errors.Is(err, ErrNoSources) {
		t.Fatalf("Expected ErrNoSources, got %v", err)
	}
}

func TestChecker_Verify_CancelledContext(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestChecker(false).Verify(ctx, claimFor(server.URL+"/full")); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestChecker_Check_PartialDetails(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	checks, err := newTestChecker(false).Check(context.Background(), claimFor(server.URL+"/partial"))
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(checks) != 1 {
		t.Fatalf("Expected 1 check, got %d", len(checks))
	}
	ch := checks[0]
	if !ch.IsAccessible || ch.StatusCode != http.StatusOK {
		t.Errorf("Expected accessible 200, got %+v", ch)
	}
	if len(ch.Missing) != 1 || ch.Missing[0] != "mesure" {
		t.Errorf("Expected 'mesure' missing, got %v", ch.Missing)
	}
	if ch.Authority != model.TierTertiary {
		t.Errorf("Expected tertiary authority for local host, got %v", ch.Authority)
	}
}

func TestChecker_Check_PreservesOrder(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	text := fmt.Sprintf("Le Rhône mesure 812 km, voir %s/gone puis %s/full puis %s/silent puis %s/partial",
		server.URL, server.URL, server.URL, server.URL)
	checks, err := newTestChecker(false).Check(context.Background(), text)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	want := []string{"/gone", "/full", "/silent", "/partial"}
	if len(checks) != len(want) {
		t.Fatalf("Expected %d checks, got %d", len(want), len(checks))
	}
	for i, path := range want {
		if checks[i].URL != server.URL+path {
			t.Errorf("checks[%d] = %s, want %s", i, checks[i].URL, server.URL+path)
		}
	}
	if !checks[0].IsDead {
		t.Error("Expected 410 to be dead")
	}
}

func TestChecker_Check_UnreachableIsDead(t *testing.T) {
	server := newTestServer()
	url := server.URL + "/full"
	server.Close()

	checks, err := newTestChecker(false).Check(context.Background(), claimFor(url))
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !checks[0].IsDead || checks[0].Error == "" {
		t.Errorf("Expected dead source with error, got %+v", checks[0])
	}
}

func TestChecker_Check_RespectsRobots(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	checks, err := newTestChecker(true).Check(context.Background(), claimFor(server.URL+"/private/page"))
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if checks[0].BlockedBy != "robots.txt" || checks[0].IsAccessible {
		t.Errorf("Expected source blocked by robots.txt, got %+v", checks[0])
	}
	if got := Summarize(checks); got != model.ValidityUnknown {
		t.Errorf("Expected unknown validity for blocked source, got %s", got)
	}
}

func TestSummarize(t *testing.T) {
	dead := model.SourceCheck{IsDead: true}
	silent := model.SourceCheck{IsAccessible: true}
	partial := model.SourceCheck{IsAccessible: true, Matched: []string{"a"}, Missing: []string{"b"}}
	full := model.SourceCheck{IsAccessible: true, Matched: []string{"a"}}
	blocked := model.SourceCheck{BlockedBy: "robots.txt"}

	tests := []struct {
		name     string
		checks   []model.SourceCheck
		expected model.Validity
	}{
		{"one supporting source wins", []model.SourceCheck{dead, silent, full}, model.ValidityTrue},
		{"partial beats absence", []model.SourceCheck{silent, partial}, model.ValidityPartial},
		{"absence beats dead", []model.SourceCheck{dead, silent}, model.ValidityAbsence},
		{"all dead", []model.SourceCheck{dead, dead}, model.ValidityFalse},
		{"dead and blocked", []model.SourceCheck{dead, blocked}, model.ValidityUnknown},
		{"empty", nil, model.ValidityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.checks); got != tt.expected {
				t.Errorf("Summarize = %s, want %s", got, tt.expected)
			}
		})
	}
}

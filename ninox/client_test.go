package ninox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/panafact/fepa_backend/config"
)

func newTestClient(t *testing.T, server *httptest.Server, pageSize int) *Client {
	t.Helper()
	t.Setenv("NINOX_PAGE_SIZE", strconv.Itoa(pageSize))
	client, err := NewClient(config.NinoxAccount{BaseURL: server.URL, Token: "test-token"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func recordsJSON(ids ...int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf(`{"id": %d, "fields": {"Numero": "%d"}}`, id, id))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(config.NinoxAccount{BaseURL: "http://example.invalid"}); err == nil {
		t.Fatal("expected an error for an empty token")
	}
}

func TestFetchTablePagination(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		switch offset {
		case 0:
			fmt.Fprint(w, recordsJSON(1, 2))
		case 2:
			fmt.Fprint(w, recordsJSON(3, 4))
		case 4:
			// Short page ends the walk.
			fmt.Fprint(w, recordsJSON(5))
		default:
			t.Errorf("unexpected offset %d", offset)
			fmt.Fprint(w, "[]")
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, 2)
	records, err := client.FetchTable(context.Background(), "Facturas")
	if err != nil {
		t.Fatalf("FetchTable: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	if requests != 3 {
		t.Fatalf("made %d requests, want 3", requests)
	}
}

func TestFetchTablePartialOnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset == 0 {
			fmt.Fprint(w, recordsJSON(1, 2))
			return
		}
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server, 2)
	records, err := client.FetchTable(context.Background(), "Facturas")
	if err == nil {
		t.Fatal("expected an error from the failed page")
	}
	if len(records) != 2 {
		t.Fatalf("partial result should keep the pages fetched so far, got %d records", len(records))
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("error should carry the upstream body, got %v", err)
	}
}

func TestFetchTableAliasesProbing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "Clientes") {
			fmt.Fprint(w, "[]")
			return
		}
		if strings.Contains(r.URL.Path, "Cliente") {
			fmt.Fprint(w, recordsJSON(1))
			return
		}
		t.Errorf("unexpected table path %s", r.URL.Path)
	}))
	defer server.Close()

	client := newTestClient(t, server, 100)
	records, err := client.FetchTableAliases(context.Background(), "Clientes", "Cliente")
	if err != nil {
		t.Fatalf("FetchTableAliases: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 from the second alias", len(records))
	}
}

func TestFetchTableAliasesKeepsPartialError(t *testing.T) {
	// First page succeeds, second dies: the partial batch must arrive together
	// with the error so callers can warn about a truncated table.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset == 0 {
			fmt.Fprint(w, recordsJSON(1, 2))
			return
		}
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server, 2)
	records, err := client.FetchTableAliases(context.Background(), "Facturas")
	if len(records) != 2 {
		t.Fatalf("got %d records, want the 2 fetched before the failure", len(records))
	}
	if err == nil {
		t.Fatal("truncated walk must not look like a clean success")
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("error should carry the upstream body, got %v", err)
	}
}

func TestFetchTableAliasesAllEmptySurfacesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "Productos") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	client := newTestClient(t, server, 100)
	records, err := client.FetchTableAliases(context.Background(), "Productos", "Producto")
	if err == nil {
		t.Fatal("expected the probe error when every alias is empty")
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want 0", len(records))
	}
}

func TestFetchTableContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, recordsJSON(1))
	}))
	defer server.Close()

	client := newTestClient(t, server, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.FetchTable(ctx, "Facturas"); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

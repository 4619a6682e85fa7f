package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRouteTable(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, nil, Config{})
	router, ok := s.routes().(chi.Router)
	if !ok {
		t.Fatal("routes() did not return a chi router")
	}

	registered := map[string]bool{}
	err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		registered[method+" "+route] = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"POST /chat/",
		"POST /chat/stream",
		"GET /chat/summary",
		"POST /ingest/text",
		"POST /ingest/file",
		"POST /ingest/url",
		"GET /ingest/file/{hash}",
		"POST /search/",
		"GET /financial/report",
		"POST /financial/debts/payment",
		"GET /reminders/",
		"POST /reminders/delete-all",
		"POST /reminders/merge-duplicates",
		"GET /inventory/duplicates",
		"GET /inventory/by-barcode/{code}",
		"GET /productivity/sprints/{name}/burndown",
		"POST /productivity/timeblock/apply",
		"GET /proactive/noon-checkin",
		"POST /proactive/reschedule-persistent",
		"POST /backup/restore/{timestamp}",
		"GET /graph/image",
	} {
		if !registered[want] {
			t.Errorf("route not registered: %s", want)
		}
	}
}

func TestDefaultAddr(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, nil, Config{})
	if s.http.Addr != "0.0.0.0:8500" {
		t.Errorf("default addr = %s", s.http.Addr)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s := New(nil, nil, nil, nil, nil, nil, Config{})

	req := httptest.NewRequest(http.MethodPost, "/chat/", strings.NewReader(`{"message":""}`))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", rec.Code)
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?month=5&compare=true&bad=zz", nil)
	if got := queryInt(req, "month", 1); got != 5 {
		t.Errorf("queryInt month = %d", got)
	}
	if got := queryInt(req, "missing", 7); got != 7 {
		t.Errorf("queryInt default = %d", got)
	}
	if got := queryInt(req, "bad", 9); got != 9 {
		t.Errorf("queryInt non-numeric = %d", got)
	}
	if !queryBool(req, "compare") || queryBool(req, "missing") {
		t.Error("queryBool wrong")
	}
}

package azure

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedCall struct {
	Route       string
	Method      string
	Path        string
	Query       string
	ContentType string
	Auth        string
	Body        string
}

// fakeAzure is an in-process stand-in for the test plan REST API.
type fakeAzure struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	calls  []recordedCall
	points string
	run    string
	fail   map[string]int
}

func newFakeAzure(t *testing.T) *fakeAzure {
	t.Helper()
	f := &fakeAzure{
		t:      t,
		points: `{"value":[{"id":555}],"count":1}`,
		run:    `{"id":101,"webAccessUrl":"https://example/runs/101"}`,
		fail:   map[string]int{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func route(r *http.Request) string {
	p := r.URL.Path
	switch {
	case strings.HasSuffix(p, "/TestPoint") && r.Method == http.MethodGet:
		return "lookup"
	case strings.HasSuffix(p, "/TestPoint") && r.Method == http.MethodPatch:
		return "patch point"
	case strings.Contains(p, "/_apis/wit/workitems/"):
		return "work item"
	case strings.HasSuffix(p, "/attachments"):
		return "attachment"
	case strings.HasSuffix(p, "/results"):
		return "create result"
	case strings.HasSuffix(p, "/_apis/test/runs") && r.Method == http.MethodPost:
		return "create run"
	case strings.Contains(p, "/_apis/test/runs/") && r.Method == http.MethodPatch:
		return "complete run"
	}
	return "unknown"
}

func (f *fakeAzure) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	name := route(r)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Route:       name,
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		ContentType: r.Header.Get("Content-Type"),
		Auth:        r.Header.Get("Authorization"),
		Body:        string(body),
	})
	status, failing := f.fail[name]
	f.mu.Unlock()

	if failing {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"` + name + ` rejected"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch name {
	case "lookup":
		_, _ = w.Write([]byte(f.points))
	case "create run":
		_, _ = w.Write([]byte(f.run))
	case "create result":
		_, _ = w.Write([]byte(`{"count":1,"value":[{"id":100000}]}`))
	case "unknown":
		w.WriteHeader(http.StatusNotFound)
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func (f *fakeAzure) failRoute(name string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[name] = status
}

func (f *fakeAzure) routes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Route
	}
	return out
}

func (f *fakeAzure) callsTo(name string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Route == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAzure) config() Config {
	return Config{
		Host:         f.srv.URL,
		Organization: "org",
		Project:      "proj",
		Token:        "pat",
		Enabled:      true,
	}
}

func decodeBody(t *testing.T, c recordedCall, out any) {
	t.Helper()
	if err := json.Unmarshal([]byte(c.Body), out); err != nil {
		t.Fatalf("decode %s body %q: %v", c.Route, c.Body, err)
	}
}

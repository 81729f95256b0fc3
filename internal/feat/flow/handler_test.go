package flow

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/formkit/internal/feat/responses"
	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/logger"
)

type passthrough struct{}

func (passthrough) CORS(next http.Handler) http.Handler       { return next }
func (passthrough) Middleware(next http.Handler) http.Handler { return next }

func newTestRouter(t *testing.T) (chi.Router, *recordingSubmitter) {
	t.Helper()
	return newGuardedRouter(t, passthrough{})
}

func newGuardedRouter(t *testing.T, guard Guard) (chi.Router, *recordingSubmitter) {
	t.Helper()
	s, _, sub := newTestService(t)
	metadata := responses.NewMetadataReader(config.ResponsesConfig{}, logger.NewNoopLogger())

	r := chi.NewRouter()
	NewHandler(s, metadata, guard, logger.NewNoopLogger()).RegisterRoutes(r)
	return r, sub
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "flow-test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) State {
	t.Helper()
	var st State
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("cannot decode state: %v, body = %s", err, w.Body)
	}
	return st
}

func TestHandlerSessionFlow(t *testing.T) {
	r, sub := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/v1/forms/f1/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("begin status = %d, body = %s", w.Code, w.Body)
	}
	st := decodeState(t, w)
	base := "/api/v1/sessions/" + st.ID

	if w = do(r, http.MethodPost, base+"/next", ""); w.Code != http.StatusUnprocessableEntity ||
		!strings.Contains(w.Body.String(), `"answer_required"`) {
		t.Errorf("next without answer status = %d, body = %s", w.Code, w.Body)
	}

	if w = do(r, http.MethodPut, base+"/answers/q1", `{"value":"Ada"}`); w.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body = %s", w.Code, w.Body)
	}
	if w = do(r, http.MethodPut, base+"/answers/q3", `{"value":["go"]}`); w.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body = %s", w.Code, w.Body)
	}

	w = do(r, http.MethodPut, base+"/active", `{"index":7}`)
	if got := decodeState(t, w); got.Active != 2 || !got.IsLast {
		t.Errorf("set active = %+v", got)
	}
	w = do(r, http.MethodPost, base+"/previous", "")
	if got := decodeState(t, w); got.Active != 1 {
		t.Errorf("previous Active = %d, want 1", got.Active)
	}

	if w = do(r, http.MethodPut, base+"/active", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("set active without index status = %d, want 400", w.Code)
	}

	if w = do(r, http.MethodPost, base+"/submit", ""); w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body)
	}
	if len(sub.drafts) != 1 || sub.drafts[0].Metadata.UserAgent != "flow-test" {
		t.Errorf("drafts = %+v", sub.drafts)
	}

	if w = do(r, http.MethodPost, base+"/next", ""); w.Code != http.StatusConflict {
		t.Errorf("next after submit status = %d, want 409", w.Code)
	}
}

func TestHandlerNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/v1/forms/missing/sessions", ""},
		{http.MethodGet, "/api/v1/sessions/missing", ""},
		{http.MethodPost, "/api/v1/sessions/missing/next", ""},
	} {
		if w := do(r, tc.method, tc.path, tc.body); w.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", tc.method, tc.path, w.Code)
		}
	}
}

func TestHandlerFullSessionUnderDefaultRateLimit(t *testing.T) {
	guard := responses.NewGuard(config.Defaults("dev").Responses, logger.NewNoopLogger())
	r, sub := newGuardedRouter(t, guard)

	w := do(r, http.MethodPost, "/api/v1/forms/f1/sessions", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("begin status = %d, body = %s", w.Code, w.Body)
	}
	base := "/api/v1/sessions/" + decodeState(t, w).ID

	steps := []struct{ method, path, body string }{
		{http.MethodGet, base, ""},
		{http.MethodPut, base + "/answers/q1", `{"value":"Ada"}`},
		{http.MethodPost, base + "/next", ""},
		{http.MethodPut, base + "/answers/q2", `{"value":"ada@example.com"}`},
		{http.MethodPost, base + "/next", ""},
		{http.MethodPost, base + "/previous", ""},
		{http.MethodPost, base + "/next", ""},
		{http.MethodPut, base + "/answers/q3", `{"value":["go"]}`},
		{http.MethodPut, base + "/active", `{"index":2}`},
		{http.MethodGet, base, ""},
	}
	for _, st := range steps {
		if w := do(r, st.method, st.path, st.body); w.Code != http.StatusOK {
			t.Fatalf("%s %s status = %d, body = %s", st.method, st.path, w.Code, w.Body)
		}
	}

	if w := do(r, http.MethodPost, base+"/submit", ""); w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body)
	}
	if len(sub.drafts) != 1 {
		t.Errorf("drafts = %d, want 1", len(sub.drafts))
	}
}

func TestHandlerRateLimitsSessionCreation(t *testing.T) {
	cfg := config.Defaults("dev").Responses
	guard := responses.NewGuard(cfg, logger.NewNoopLogger())
	r, _ := newGuardedRouter(t, guard)

	for i := 0; i < cfg.Burst; i++ {
		if w := do(r, http.MethodPost, "/api/v1/forms/f1/sessions", ""); w.Code != http.StatusCreated {
			t.Fatalf("begin %d status = %d", i, w.Code)
		}
	}
	if w := do(r, http.MethodPost, "/api/v1/forms/f1/sessions", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("begin over burst status = %d, want 429", w.Code)
	}
}

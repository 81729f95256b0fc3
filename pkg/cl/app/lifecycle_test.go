package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliossg/formkit/pkg/cl/logger"
)

type component struct {
	name     string
	startErr error
	events   *[]string
}

func (c *component) Start(ctx context.Context) error {
	*c.events = append(*c.events, "start "+c.name)
	return c.startErr
}

func (c *component) Stop(ctx context.Context) error {
	*c.events = append(*c.events, "stop "+c.name)
	return nil
}

func (c *component) RegisterRoutes(r chi.Router) {
	r.Get("/"+c.name, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestStartRegistersRoutesAndStopIsReversed(t *testing.T) {
	var events []string
	a := &component{name: "a", events: &events}
	b := &component{name: "b", events: &events}
	r := chi.NewRouter()
	log := logger.NewNoopLogger()

	starts, stops, registrars := Setup(context.Background(), r, a, b, "not a component")
	require.Len(t, starts, 2)
	require.Len(t, registrars, 2)

	require.NoError(t, Start(context.Background(), log, starts, stops, registrars, r))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/b", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	Stop(context.Background(), log, stops)
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, events)
}

func TestStartRollsBackOnFailure(t *testing.T) {
	var events []string
	a := &component{name: "a", events: &events}
	b := &component{name: "b", startErr: errors.New("boom"), events: &events}
	r := chi.NewRouter()

	starts, stops, registrars := Setup(context.Background(), r, a, b)
	err := Start(context.Background(), logger.NewNoopLogger(), starts, stops, registrars, r)

	require.Error(t, err)
	assert.Equal(t, []string{"start a", "start b", "stop a"}, events)
}

type startOnly struct {
	events *[]string
}

func (c startOnly) Start(ctx context.Context) error {
	*c.events = append(*c.events, "start plain")
	return nil
}

func TestRollbackSkipsComponentsWithoutStop(t *testing.T) {
	var events []string
	a := &component{name: "a", events: &events}
	b := &component{name: "b", startErr: errors.New("boom"), events: &events}

	starts, stops, registrars := Setup(context.Background(), chi.NewRouter(), a, startOnly{&events}, b)
	require.Len(t, starts, 3)
	require.Len(t, stops, 3)

	err := Start(context.Background(), logger.NewNoopLogger(), starts, stops, registrars, chi.NewRouter())

	require.Error(t, err)
	assert.Equal(t, []string{"start a", "start plain", "start b", "stop a"}, events)
}

func TestShutdownStopsComponents(t *testing.T) {
	var events []string
	a := &component{name: "a", events: &events}
	_, stops, _ := Setup(context.Background(), chi.NewRouter(), a)

	srv := NewServer(chi.NewRouter(), "127.0.0.1:0")
	Shutdown(srv, time.Second, logger.NewNoopLogger(), stops)

	assert.Equal(t, []string{"stop a"}, events)
}

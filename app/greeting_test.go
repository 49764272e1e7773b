package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/pibox/app"
	kernel "github.com/km-arc/pibox/framework/app"
	"github.com/km-arc/pibox/framework/config"
	"github.com/km-arc/pibox/framework/container"
	"github.com/km-arc/pibox/framework/plugins"
)

func boot(t *testing.T, sections map[string]any) (*kernel.Application, http.Handler) {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	a := kernel.New(app.Component(),
		kernel.WithConfigSource(config.FromMap(sections)),
		kernel.WithLogger(logger))
	h, err := a.Handler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a, h
}

func send(t *testing.T, h http.Handler, method, target, body string) (int, http.Header, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))
	var m map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
	return rr.Code, rr.Header(), m
}

func TestHello(t *testing.T) {
	_, h := boot(t, nil)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"default name", "/api/v1/hello", "Hello, world!"},
		{"query name", "/api/v1/hello?name=Ada", "Hello, Ada!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, header, body := send(t, h, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, app.Name, header.Get("X-Powered-By"))
			assert.Equal(t, tt.want, body["data"].(map[string]any)["message"])
		})
	}
}

func TestHello_ConfiguredGreeting(t *testing.T) {
	t.Setenv("GREETING_PUNCTUATION", "?")
	_, h := boot(t, map[string]any{app.GreetingSection: map[string]any{"salutation": "Howdy", "max_name_len": 3}})

	_, _, body := send(t, h, http.MethodGet, "/api/v1/hello?name=Al", "")
	assert.Equal(t, "Howdy, Al?", body["data"].(map[string]any)["message"])

	code, _, body := send(t, h, http.MethodGet, "/api/v1/hello?name=Alice", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, app.ErrNameTooLong.Error(), body["message"])
}

func TestGreetings_Post(t *testing.T) {
	_, h := boot(t, nil)

	code, _, body := send(t, h, http.MethodPost, "/api/v1/greetings", `{"name":"Grace"}`)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Hello, Grace!", body["data"].(map[string]any)["message"])

	code, _, _ = send(t, h, http.MethodPost, "/api/v1/greetings", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGreetings_PostBodyTooLarge(t *testing.T) {
	_, h := boot(t, nil)

	huge := `{"name":"` + strings.Repeat("a", app.MaxGreetingBody) + `"}`
	code, header, body := send(t, h, http.MethodPost, "/api/v1/greetings", huge)

	assert.Equal(t, http.StatusRequestEntityTooLarge, code)
	assert.Contains(t, body["message"], "request body too large")
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, body["request_id"], header.Get("X-Request-Id"))
}

func TestHostPluginsRunAfterFramework(t *testing.T) {
	a, _ := boot(t, nil)

	for _, point := range []plugins.Point{plugins.PointServices, plugins.PointEndpoints, plugins.PointHealthChecks} {
		records, err := a.Plan(point)
		require.NoError(t, err)
		require.NotEmpty(t, records)
		assert.Equal(t, app.Name, records[len(records)-1].Component, point)
	}
}

func TestGreeterLifecycle(t *testing.T) {
	a, h := boot(t, nil)

	greeter, err := container.Lookup[*app.Greeter](a.Container())
	require.NoError(t, err)
	assert.Same(t, greeter, container.Resolve[*app.Greeter](a.Container(), "greeter"))

	send(t, h, http.MethodGet, "/api/v1/hello", "")
	assert.Equal(t, 1, greeter.Served())

	code, _, _ := send(t, h, http.MethodGet, "/health?tag=ready", "")
	assert.Equal(t, http.StatusOK, code)

	require.NoError(t, a.Shutdown(context.Background()))
	assert.True(t, greeter.Closed())

	code, _, _ = send(t, h, http.MethodGet, "/health?tag=ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

package admin_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-beans/framework/admin"
	"github.com/km-arc/go-beans/framework/container"
	"github.com/km-arc/go-beans/framework/definition"
)

type widget struct{ size int }

func setup(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := container.NewMetrics(reg)
	require.NoError(t, err)

	cls := container.ClassOf("widget", func() *widget { return &widget{} })
	container.Property(cls, "size", func(w *widget, n int) { w.size = n })

	c := container.New(container.WithMetrics(metrics))
	require.NoError(t, c.RegisterBeanDefinition("small", container.Define(cls).WithProperty("size", 1)))
	require.NoError(t, c.RegisterBeanDefinition("large", container.Define(cls).WithProperty("size", 9).AsLazy()))
	require.NoError(t, c.RegisterAlias("small", "tiny"))
	_, err = c.GetBean("small")
	require.NoError(t, err)

	return admin.New(admin.Options{
		Container:   c,
		Definitions: definition.NewLoader(definition.NewClasses(cls), nil, nil),
		Gatherer:    reg,
	})
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func TestAdmin_Health(t *testing.T) {
	rr, body := get(t, setup(t), "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"status": "ok", "beans": float64(2)}, body["data"])
}

func TestAdmin_Beans(t *testing.T) {
	h := setup(t)

	_, body := get(t, h, "/beans")
	assert.Len(t, body["data"], 2)

	_, body = get(t, h, "/beans?state=published")
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "small", data[0].(map[string]any)["name"])
}

func TestAdmin_Bean(t *testing.T) {
	h := setup(t)

	rr, body := get(t, h, "/beans/tiny")
	require.Equal(t, http.StatusOK, rr.Code)
	info := body["data"].(map[string]any)
	assert.Equal(t, "small", info["name"])
	assert.Equal(t, "widget", info["class"])
	assert.Equal(t, "published", info["state"])
	assert.Equal(t, []any{"tiny"}, info["aliases"])

	rr, body = get(t, h, "/beans/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, body["message"], "missing")
}

func TestAdmin_Aliases(t *testing.T) {
	_, body := get(t, setup(t), "/aliases/tiny")
	data := body["data"].(map[string]any)
	assert.Equal(t, "small", data["name"])
	assert.Equal(t, true, data["isAlias"])
	assert.Equal(t, []any{"tiny"}, data["aliases"])
}

func TestAdmin_Metrics(t *testing.T) {
	rr, _ := get(t, setup(t), "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `beans_container_created_total{scope="singleton"} 1`)
}

func TestAdmin_ValidateDefinitions(t *testing.T) {
	h := setup(t)
	post := func(body string) (*httptest.ResponseRecorder, map[string]any) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/definitions/validate", strings.NewReader(body)))
		var out map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
		return rr, out
	}

	rr, body := post("beans:\n  - {name: medium, class: widget, properties: [{name: size, value: 4}]}\n")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"medium"}, body["data"].(map[string]any)["beans"])

	rr, body = post("beans:\n  - {name: a, class: gadget}\n  - {name: '', class: widget}\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Len(t, body["errors"], 1, "validation fails before classes are resolved")

	rr, body = post("beans:\n  - {name: a, class: gadget}\n")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, body["errors"].([]any)[0], "unknown class")

	rr, _ = post("beans: [")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestAdmin_TokenGuard(t *testing.T) {
	c := container.New()
	require.NoError(t, c.RegisterSingleton("cfg", &widget{size: 3}))
	h := admin.New(admin.Options{Container: c, Token: "s3cret"})

	rr, _ := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rr.Code, "health stays open")

	rr, body := get(t, h, "/beans")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthenticated.", body["message"])

	for token, want := range map[string]int{"wrong": http.StatusUnauthorized, "s3cret": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/beans/cfg", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code, token)
	}
}

// Package admin serves read-only diagnostics for a running container: bean
// descriptions, alias resolution, health, Prometheus metrics and a dry-run
// validator for definition documents.
package admin

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/km-arc/go-beans/framework/container"
	"github.com/km-arc/go-beans/framework/definition"
	gohttp "github.com/km-arc/go-beans/framework/http"
	"github.com/km-arc/go-beans/framework/routing"
)

// Options configures the admin handler. Container is required.
type Options struct {
	Container *container.Container
	// Definitions enables POST /definitions/validate.
	Definitions *definition.Loader
	// Gatherer enables GET /metrics.
	Gatherer prometheus.Gatherer
	// Token, when set, is required as a bearer token on every route but
	// /health.
	Token  string
	Logger *zap.Logger
}

type handler struct {
	c      *container.Container
	defs   *definition.Loader
	logger *zap.Logger
}

// New returns the admin routes, ready to be mounted under a prefix:
//
//	GET  /beans                 every bean, optionally ?state=published
//	GET  /beans/{name}          one bean by name or alias
//	GET  /aliases/{name}        canonical name and aliases
//	GET  /health
//	GET  /metrics
//	POST /definitions/validate  YAML body, nothing is registered
func New(opts Options) *routing.Router {
	h := &handler{c: opts.Container, defs: opts.Definitions, logger: opts.Logger}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}

	r := routing.New(nil)
	r.Get("/health", h.health)
	r.Group(func(r *routing.Router) {
		if opts.Token != "" {
			r.Middleware(h.requireToken(opts.Token))
		}
		r.Get("/beans", h.beans)
		r.Get("/beans/{name}", h.bean)
		r.Get("/aliases/{name}", h.aliases)
		if opts.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
		}
		if h.defs != nil {
			r.Post("/definitions/validate", h.validate)
		}
	})
	return r
}

func (h *handler) requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := gohttp.NewRequest(r).BearerToken()
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				h.logger.Warn("admin request rejected", zap.String("path", r.URL.Path))
				gohttp.NewResponse(w).Unauthorized()
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	gohttp.NewResponse(w).Success(map[string]any{
		"status": "ok",
		"beans":  len(h.c.BeanDefinitionNames()),
	})
}

func (h *handler) beans(w http.ResponseWriter, r *http.Request) {
	state := gohttp.NewRequest(r).Query("state")
	out := make([]container.BeanInfo, 0)
	for _, info := range h.c.Beans() {
		if state == "" || info.State == state {
			out = append(out, info)
		}
	}
	gohttp.NewResponse(w).Success(out)
}

func (h *handler) bean(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	info, err := h.c.Describe(gohttp.NewRequest(r).RouteParam("name"))
	switch {
	case errors.Is(err, container.ErrBeanNotFound):
		res.NotFound(err.Error())
	case err != nil:
		h.logger.Error("describe bean", zap.Error(err))
		res.ServerError()
	default:
		res.Success(info)
	}
}

func (h *handler) aliases(w http.ResponseWriter, r *http.Request) {
	name := gohttp.NewRequest(r).RouteParam("name")
	canonical := h.c.CanonicalName(name)
	aliases := h.c.Aliases(canonical)
	if aliases == nil {
		aliases = []string{}
	}
	gohttp.NewResponse(w).Success(map[string]any{
		"name":      canonical,
		"isAlias":   h.c.IsAlias(name),
		"aliases":   aliases,
		"hasBean":   h.c.ContainsBeanDefinition(canonical),
		"requested": name,
	})
}

func (h *handler) validate(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)
	body, err := req.Body()
	if err != nil {
		res.Error(http.StatusBadRequest, err.Error())
		return
	}
	doc, err := definition.Parse(body)
	if err == nil {
		_, err = h.defs.Definitions(doc)
	}
	if err != nil {
		res.Invalid(definition.ErrInvalidDocument.Error(), problems(err))
		return
	}
	names := make([]string, 0, len(doc.Beans))
	for _, b := range doc.Beans {
		names = append(names, b.Name)
	}
	res.Success(map[string]any{"valid": true, "beans": names})
}

// problems flattens a joined error into one message per line.
func problems(err error) []string {
	msg := strings.TrimPrefix(err.Error(), definition.ErrInvalidDocument.Error()+": ")
	var out []string
	for _, line := range strings.Split(msg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/km-arc/go-beans/framework/aop"
	"github.com/km-arc/go-beans/framework/app"
	"github.com/km-arc/go-beans/framework/container"
	gohttp "github.com/km-arc/go-beans/framework/http"
	"github.com/km-arc/go-beans/framework/providers"
	"github.com/km-arc/go-beans/framework/routing"
)

//go:embed beans.yaml
var definitions embed.FS

var errUnknownUser = errors.New("unknown user")

// ── Domain ───────────────────────────────────────────────────────────────────

type UserRepository interface {
	Find(ctx context.Context, id string) (string, error)
}

type UserService interface {
	FindUser(ctx context.Context, id string) (string, error)
}

type memoryUserRepository struct{ users map[string]string }

func (r *memoryUserRepository) Find(_ context.Context, id string) (string, error) {
	name, ok := r.users[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", errUnknownUser, id)
	}
	return name, nil
}

type userService struct {
	repo    UserRepository
	timeout time.Duration
}

func (s *userService) Start() error {
	if s.repo == nil {
		return errors.New("userService: repository not set")
	}
	return nil
}

func (s *userService) FindUser(ctx context.Context, id string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	name, err := s.repo.Find(ctx, id)
	if err != nil {
		return "", err
	}
	return "User: " + name, nil
}

type userServiceStub struct{ d aop.Dispatcher }

func (s *userServiceStub) FindUser(ctx context.Context, id string) (string, error) {
	out := s.d.Invoke("FindUser", ctx, id)
	return aop.Result[string](out, 0), aop.Result[error](out, 1)
}

func classes() []*container.Class {
	repo := container.NewClass("memoryUserRepository", func(args []any) (*memoryUserRepository, error) {
		seed, err := container.Arg[string](args, 0)
		if err != nil {
			return nil, err
		}
		r := &memoryUserRepository{users: make(map[string]string)}
		for i, name := range strings.Split(seed, ",") {
			r.users[fmt.Sprint(i+1)] = strings.TrimSpace(name)
		}
		return r, nil
	})

	svc := container.ClassOf("userService", func() *userService { return &userService{timeout: time.Second} })
	container.Property(svc, "repository", func(s *userService, r UserRepository) { s.repo = r })
	container.Property(svc, "timeout", func(s *userService, d time.Duration) { s.timeout = d })
	container.Method(svc, "Start", (*userService).Start)
	return []*container.Class{repo, svc}
}

// ── Bootstrap ────────────────────────────────────────────────────────────────

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("BEANS_DEFINITIONS") == "" {
		_ = os.Setenv("BEANS_DEFINITIONS", "embed:beans.yaml")
	}
	application, err := app.New(app.WithDefinitionFS(definitions), app.WithClasses(classes()...))
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	metrics, err := aop.NewMetricsInterceptor(application.Metrics())
	if err != nil {
		return err
	}
	stubs := aop.NewStubRegistry()
	aop.RegisterInterface(stubs, func(d aop.Dispatcher) UserService { return &userServiceStub{d} })

	if err := application.Register(&providers.AopServiceProvider{Creator: &aop.AutoProxyCreator{
		Pointcut: aop.MustParsePointcut("execution(* *Service.*(..))"),
		Advices: []any{
			aop.NewLoggingInterceptor(application.Logger()),
			metrics,
			aop.NewTracingInterceptor(tp),
		},
		Stubs: stubs,
	}}); err != nil {
		return err
	}
	if err := application.Boot(); err != nil {
		return err
	}

	router, err := application.Router()
	if err != nil {
		return err
	}
	users, err := container.GetBeanAs[UserService](application.Container, "users")
	if err != nil {
		return err
	}

	router.Prefix("/api", func(api *routing.Router) {
		api.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
			res := gohttp.NewResponse(w)
			name, err := users.FindUser(r.Context(), routing.Param(r, "id"))
			switch {
			case errors.Is(err, errUnknownUser):
				res.NotFound(err.Error())
			case err != nil:
				application.Logger().Error("find user", zap.Error(err))
				res.ServerError()
			default:
				res.Success(map[string]any{"name": name})
			}
		})
	})

	return application.Run(ctx)
}

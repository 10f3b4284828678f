// Command sample runs a small user service on top of the pipeline
// request core.
//
// Run:
//
//	go run ./cmd/sample
//
// Configuration is read from the environment (optionally a .env file) with
// the SAMPLE_ prefix, e.g. SAMPLE_ADDR=:9090 or SAMPLE_REQUEST_TIMEOUT=5s.
//
// Then explore:
//
//	GET    http://localhost:8080/v1/health
//	GET    http://localhost:8080/v1/users?role=admin
//	POST   http://localhost:8080/v1/users
//	GET    http://localhost:8080/v1/users/{id}
//	PUT    http://localhost:8080/v1/users/{id}
//	DELETE http://localhost:8080/v1/users/{id}          (Authorization: Bearer admin-token)
//	GET    http://localhost:8080/metrics
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bjaus/pipeline"
)

func main() {
	cfg, err := pipeline.LoadConfig("SAMPLE_")
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := newRouter(cfg, logger, prometheus.NewRegistry())

	slog.Info("starting server", "addr", cfg.Addr)

	if err := r.Run(ctx, cfg); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}

	slog.Info("server stopped")
}

func newRouter(cfg pipeline.Config, logger *slog.Logger, reg *prometheus.Registry) *pipeline.Router {
	state := pipeline.NewAppState()
	pipeline.Provide(state, newUserStore())

	r := pipeline.New(
		pipeline.WithState(state),
		pipeline.WithLogger(logger),
	)

	metrics := pipeline.NewMetrics("sample", reg)

	// Global middleware.
	r.Use(
		pipeline.Recovery(),
		pipeline.RequestID(),
		pipeline.Logger(logger),
		metrics.Middleware(),
		pipeline.Secure(),
		pipeline.CORS(),
	)
	r.Use(cfg.Middleware()...)

	r.Raw("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// ---------- v1 group ----------

	v1 := r.Group("/v1", pipeline.WithGroupTags("v1"))

	v1.Get("/health", pipeline.Handle0(handleHealth),
		pipeline.WithSummary("Health check"),
		pipeline.WithTags("ops"),
		pipeline.WithRouteMiddleware(pipeline.Cache(pipeline.CacheConfig{TTL: time.Second})),
	)

	v1.Get("/users", pipeline.Handle2(handleListUsers),
		pipeline.WithSummary("List users"),
		pipeline.WithTags("users"),
	)
	v1.Post("/users", pipeline.Handle2(handleCreateUser),
		pipeline.WithSummary("Create user"),
		pipeline.WithTags("users"),
		pipeline.WithBodyLimit(16<<10),
	)
	v1.Get("/users/{id}", pipeline.Handle2(handleGetUser),
		pipeline.WithSummary("Get user by ID"),
		pipeline.WithTags("users"),
	)
	v1.Put("/users/{id}", pipeline.Handle3(handleUpdateUser),
		pipeline.WithSummary("Update user"),
		pipeline.WithTags("users"),
	)

	protected := v1.Group("", pipeline.WithGroupMiddleware(pipeline.BearerAuth(validateToken)))
	protected.Delete("/users/{id}", pipeline.Handle3(handleDeleteUser),
		pipeline.WithSummary("Delete user"),
		pipeline.WithTags("users", "admin"),
	)

	return r
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

type userStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	nextID int
}

func newUserStore() *userStore {
	return &userStore{
		users: map[string]*User{
			"1": {ID: "1", Name: "Alice", Email: "alice@example.com", Role: "admin", CreatedAt: time.Now()},
			"2": {ID: "2", Name: "Bob", Email: "bob@example.com", Role: "member", CreatedAt: time.Now()},
		},
		nextID: 3,
	}
}

func (s *userStore) list(role string) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	return out
}

func (s *userStore) get(id string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

func (s *userStore) create(name, email, role string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{
		ID:        fmt.Sprintf("%d", s.nextID),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.users[u.ID] = u
	cp := *u
	return &cp
}

func (s *userStore) update(id, name, email, role string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	if role != "" {
		u.Role = role
	}
	cp := *u
	return &cp, true
}

func (s *userStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// User is the core domain entity.
type User struct {
	ID        string    `json:"id" yaml:"id" xml:"id"`
	Name      string    `json:"name" yaml:"name" xml:"name"`
	Email     string    `json:"email" yaml:"email" xml:"email"`
	Role      string    `json:"role" yaml:"role" xml:"role"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" xml:"created_at"`
}

type healthResp struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type listUsersQuery struct {
	Role   string `query:"role"`
	Limit  int    `query:"limit" default:"50"`
	Offset int    `query:"offset" default:"0"`
}

type listUsersResp struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

type userInput struct {
	Name  string `json:"name" yaml:"name" xml:"name"`
	Email string `json:"email" yaml:"email" xml:"email"`
	Role  string `json:"role" yaml:"role" xml:"role"`
}

// Validate implements pipeline.SelfValidator.
func (in userInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return pipeline.BadRequest("name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return pipeline.BadRequest("email must contain @")
	}
	return nil
}

type admin struct {
	Name string
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

type users = pipeline.State[*userStore]

func handleHealth(_ context.Context) (*healthResp, error) {
	return &healthResp{Status: "ok", Time: time.Now()}, nil
}

func handleListUsers(_ context.Context, s users, q pipeline.Query[listUsersQuery]) (*listUsersResp, error) {
	all := s.Value.list(q.Value.Role)
	total := len(all)

	if q.Value.Offset > len(all) {
		all = nil
	} else {
		all = all[q.Value.Offset:]
	}
	if q.Value.Limit > 0 && q.Value.Limit < len(all) {
		all = all[:q.Value.Limit]
	}

	return &listUsersResp{Users: all, Total: total}, nil
}

func handleCreateUser(_ context.Context, s users, body pipeline.Valid[pipeline.Body[userInput]]) (pipeline.Status[*User], error) {
	in := body.Value.Value
	role := in.Role
	if role == "" {
		role = "member"
	}
	return pipeline.Created(s.Value.create(in.Name, in.Email, role)), nil
}

func handleGetUser(_ context.Context, s users, id pipeline.Path[string]) (*User, error) {
	user, ok := s.Value.get(id.Value)
	if !ok {
		return nil, pipeline.Errorf(http.StatusNotFound, "user %s not found", id.Value)
	}
	return user, nil
}

func handleUpdateUser(_ context.Context, s users, id pipeline.Path[string], body pipeline.Body[userInput]) (*User, error) {
	user, ok := s.Value.update(id.Value, body.Value.Name, body.Value.Email, body.Value.Role)
	if !ok {
		return nil, pipeline.Errorf(http.StatusNotFound, "user %s not found", id.Value)
	}
	return user, nil
}

func handleDeleteUser(ctx context.Context, s users, who pipeline.Value[admin], id pipeline.Path[string]) (pipeline.Void, error) {
	if !s.Value.delete(id.Value) {
		return pipeline.Void{}, pipeline.Errorf(http.StatusNotFound, "user %s not found", id.Value)
	}
	slog.InfoContext(ctx, "user deleted", "id", id.Value, "by", who.Value.Name)
	return pipeline.Void{}, nil
}

func validateToken(_ context.Context, token string) (admin, error) {
	if token != "admin-token" {
		return admin{}, pipeline.Unauthorized("invalid token")
	}
	return admin{Name: "root"}, nil
}

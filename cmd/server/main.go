// Package main implements the server entry point for goframe, a
// reflection-driven application framework. The bootstrap follows the
// framework's composition order: Property Source -> ORM Adapter ->
// Repository Synthesizer -> Security Interceptor -> CRUD Generator -> HTTP
// listener, mirroring the teacher's own phase-numbered main.go.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aras-services/goframe/internal/config"
	"github.com/aras-services/goframe/internal/crud"
	"github.com/aras-services/goframe/internal/entity"
	"github.com/aras-services/goframe/internal/orm"
	"github.com/aras-services/goframe/internal/repository"
	"github.com/aras-services/goframe/internal/router"
	"github.com/aras-services/goframe/internal/scan"
	"github.com/aras-services/goframe/internal/security"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func printVersion() {
	fmt.Printf("goframe version %s\n", version)
	if buildTime != "unknown" {
		fmt.Printf("Build Time: %s\n", buildTime)
	}
	if gitCommit != "unknown" {
		fmt.Printf("Git Commit: %s\n", gitCommit)
	}
	os.Exit(0)
}

func main() {
	if len(os.Args) > 1 {
		for _, arg := range os.Args[1:] {
			if arg == "--version" || arg == "-v" {
				printVersion()
			}
		}
	}

	// PHASE 1: Property Source — env config is authoritative; an
	// application.yaml, if present, backs keys the environment never set.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	fileProps, err := config.LoadFile("application.yaml")
	if err != nil {
		logger.Fatal("failed to load application.yaml", zap.Error(err))
	}
	props := config.NewLayered(config.NewEnvPropertySource(cfg), fileProps)
	logger.Info("metrics enabled", zap.Bool("value", props.GetBool("app.metrics.enabled", false)))

	// PHASE 2: ORM Adapter — connect to PostgreSQL via pgx, wrapped behind
	// the framework's orm.Adapter so the synthesizer never imports pgx.
	pool, err := pgxpool.New(context.Background(), cfg.GetDSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	logger.Info("connected to database")

	adapter := orm.NewPgxAdapter(pool)

	// PHASE 3: Classpath Scanner — explicit registration stands in for
	// annotation scanning (no Go equivalent of reflecting over markers), so
	// entities and repositories are declared here instead of discovered from
	// a package walk. DetectRoot/DefaultRoots are still exercised for the
	// diagnostic they'd carry if a future scan did walk a package tree.
	root := scan.DetectRoot(1)
	logger.Info("classpath scan root", zap.String("root", root), zap.Strings("fallbackRoots", scan.DefaultRoots()))

	registry := scan.NewRegistry()
	registry.RegisterEntity(reflect.TypeOf(entity.User{}))
	registry.RegisterEntity(reflect.TypeOf(entity.Product{}))

	userRepo := &entity.UserRepository{}
	registry.RegisterRepository(func() any { return userRepo }, reflect.TypeOf(entity.User{}))

	productRepo := &entity.ProductRepository{}
	registry.RegisterRepository(func() any { return productRepo }, reflect.TypeOf(entity.Product{}))

	for _, warning := range registry.Warnings() {
		logger.Warn("classpath scan skipped a candidate", zap.String("detail", warning))
	}

	// PHASE 3b: Repository Synthesizer — wire every repository the scan found.
	synth := repository.NewSynthesizer(adapter)
	for _, re := range registry.Repositories() {
		if err := synth.Wire(re.New(), re.EntityType, nil); err != nil {
			logger.Fatal("failed to wire repository", zap.String("entity", re.EntityType.Name()), zap.Error(err))
		}
	}

	// PHASE 4: Security Interceptor — token issuance/validation and the URL
	// classification policy, bridged into the router's security-check hook.
	tokens := security.NewTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)
	policy := security.Policy{
		Public:        []string{"/api/v1/auth/register", "/api/v1/auth/login", "/health", "/metrics"},
		Authenticated: []string{"/api/v1/**"},
		RoleRestricted: map[security.Role][]string{
			"admin": {"/api/v1/products/batch"},
		},
	}
	interceptor := security.NewInterceptor(policy, tokens)

	securityCheck := func(r *http.Request) (router.Decision, error) {
		decision, err := interceptor.Check(r)
		if err != nil {
			return router.Decision{}, err
		}
		if !decision.Allowed {
			return router.Decision{Allowed: false, StatusCode: decision.StatusCode, Message: decision.Message}, nil
		}
		values := map[string]any{}
		if decision.Claims != nil {
			values["subject"] = decision.Claims.Subject
			values["email"] = decision.Claims.Email
			values["roles"] = decision.Claims.Roles
		}
		return router.Decision{Allowed: true, Values: values}, nil
	}

	// PHASE 5: Router + CRUD Generator.
	r := router.New(logger, securityCheck)
	gen := crud.New(r)

	userController := entity.NewUserController(userRepo)
	if err := gen.Generate(userController, userRepo, crud.Directive{
		BasePath:         "/api/v1/users",
		Pagination:       true,
		DefaultPageSize:  20,
		MaxPageSize:      100,
		SearchableFields: []string{"email", "firstName", "lastName"},
		MaxBatchSize:     50,
	}); err != nil {
		logger.Fatal("failed to generate User CRUD routes", zap.Error(err))
	}

	productController := entity.NewProductController(productRepo)
	if err := gen.Generate(productController, productRepo, crud.Directive{
		BasePath:         "/api/v1/products",
		Pagination:       true,
		DefaultPageSize:  20,
		MaxPageSize:      100,
		SearchableFields: []string{"sku", "name"},
		MaxBatchSize:     50,
	}); err != nil {
		logger.Fatal("failed to generate Product CRUD routes", zap.Error(err))
	}

	authController := entity.NewAuthController(userRepo, tokens)
	r.MustRegister(http.MethodPost, "/api/v1/auth/register", "AuthController.register", authController.Register)
	r.MustRegister(http.MethodPost, "/api/v1/auth/login", "AuthController.login", authController.Login)
	r.MustRegister(http.MethodGet, "/api/v1/auth/me", "AuthController.me", authController.Me)

	r.MustRegister(http.MethodGet, "/health", "health", func(req *router.Request) (router.Result, error) {
		return router.OK(map[string]any{"status": "ok"}), nil
	})
	r.MustRegister(http.MethodGet, "/metrics", "metrics", func(req *router.Request) (router.Result, error) {
		return router.OK(r.Metrics().Snapshot()), nil
	})

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	handler := r.Build(corsOptions)

	// PHASE 6: HTTP listener with graceful shutdown.
	server := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: handler,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.GetServerAddr()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

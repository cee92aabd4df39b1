package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/duty-roster/internal/application"
	"github.com/example/duty-roster/internal/config"
	httptransport "github.com/example/duty-roster/internal/http"
	"github.com/example/duty-roster/internal/persistence"
	"github.com/example/duty-roster/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := uuid.NewString
	now := time.Now

	userRepo := sqlite.NewUserRepository(pool)
	roleRepo := sqlite.NewRoleRepository(pool)
	taskRepo := sqlite.NewTaskRepository(pool)
	assignmentRepo := sqlite.NewAssignmentRepository(pool)
	obstacleRepo := sqlite.NewObstacleRepository(pool)
	conflictRepo := sqlite.NewConflictRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)

	users := newUserStoreAdapter(userRepo, roleRepo)
	roles := newRoleStoreAdapter(roleRepo)
	tasks := newTaskStoreAdapter(taskRepo, roleRepo)
	assignments := newAssignmentStoreAdapter(assignmentRepo)
	obstacles := newObstacleStoreAdapter(obstacleRepo)
	conflicts := newConflictStoreAdapter(conflictRepo)
	sessions := newSessionStoreAdapter(sessionRepo)

	hasher := func(password string) (string, error) {
		return application.CreatePasswordHash(password, application.DefaultArgon2idParams)
	}

	authService := application.NewAuthServiceWithLogger(users, sessions, application.VerifyPassword, tokenGenerator, now, cfg.SessionTTL, logger)
	roleService := application.NewRoleServiceWithLogger(roles, users, authService, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(users, roleService, hasher, idGenerator, now, logger)
	taskService := application.NewTaskServiceWithLogger(tasks, roleService, idGenerator, now, logger)
	conflictService := application.NewConflictServiceWithLogger(conflicts, taskService, idGenerator, now, logger)
	obstacleService := application.NewObstacleServiceWithLogger(obstacles, taskService, idGenerator, now, logger)
	scheduleService := application.NewScheduleServiceWithLogger(assignments, tasks, users, conflictService, obstacleService, roleService, idGenerator, now, logger)

	if err := bootstrap(ctx, cfg, userRepo, roleRepo, hasher, idGenerator, now, logger); err != nil {
		logger.Error("failed to seed initial data", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:    logger,
		Sessions:  authService,
		Auth:      httptransport.NewAuthHandler(authService, logger),
		Users:     httptransport.NewUserHandler(userService, logger),
		Roles:     httptransport.NewRoleHandler(roleService, logger),
		Tasks:     httptransport.NewTaskHandler(taskService, logger),
		Conflicts: httptransport.NewConflictHandler(conflictService, logger),
		Obstacles: httptransport.NewObstacleHandler(obstacleService, logger),
		Schedules: httptransport.NewScheduleHandler(scheduleService, logger),
		Reports:   httptransport.NewReportHandler(newReportServiceAdapter(scheduleService, taskService, userService), logger),
		Middleware: []httptransport.Middleware{
			httptransport.RequestLogger(logger),
		},
	})

	pruner := cron.New()
	if _, err := pruner.AddFunc(cfg.SessionPruneSchedule, func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := authService.PruneExpiredSessions(pruneCtx); err != nil {
			logger.Error("failed to prune expired sessions", "error", err)
		}
	}); err != nil {
		logger.Error("invalid session prune schedule", "schedule", cfg.SessionPruneSchedule, "error", err)
		os.Exit(1)
	}
	pruner.Start()
	defer pruner.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("roster API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// bootstrap seeds the protected system roles and the administrator account on
// first start. Existing entries are left untouched.
func bootstrap(
	ctx context.Context,
	cfg config.Config,
	userRepo persistence.UserRepository,
	roleRepo persistence.RoleRepository,
	hasher application.PasswordHasher,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) error {
	seededRoles := []struct {
		name      string
		sortOrder int
	}{
		{application.RoleNameUser, 1},
		{application.RoleNameFunkcyjny, 2},
		{application.RoleNameAdmin, 3},
	}

	roleIDs := make(map[string]string, len(seededRoles))
	for _, seed := range seededRoles {
		existing, err := roleRepo.GetRoleByName(ctx, seed.name)
		if err == nil {
			roleIDs[seed.name] = existing.ID
			continue
		}
		if !errors.Is(err, persistence.ErrNotFound) {
			return err
		}

		role := persistence.Role{
			ID:              idGenerator(),
			Name:            seed.name,
			Type:            application.RoleTypeSystem,
			SortOrder:       seed.sortOrder,
			VisibleInPrints: false,
			CreatedAt:       now().UTC(),
			UpdatedAt:       now().UTC(),
		}
		if err := roleRepo.CreateRole(ctx, role, nil); err != nil {
			return err
		}
		roleIDs[seed.name] = role.ID
		logger.Info("seeded system role", "role_name", seed.name)
	}

	if _, err := userRepo.GetUserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}

	hash, err := hasher(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := persistence.User{
		ID:           idGenerator(),
		Email:        cfg.AdminEmail,
		Name:         "Administrator",
		Surname:      "Systemu",
		PasswordHash: hash,
		Enabled:      true,
		RoleIDs:      []string{roleIDs[application.RoleNameUser], roleIDs[application.RoleNameAdmin]},
		CreatedAt:    now().UTC(),
		UpdatedAt:    now().UTC(),
	}
	if err := userRepo.CreateUser(ctx, admin); err != nil {
		return err
	}
	logger.Info("seeded administrator account", "email", cfg.AdminEmail)
	return nil
}

// reportServiceAdapter bundles the listings the roster report needs.
type reportServiceAdapter struct {
	schedules *application.ScheduleService
	tasks     *application.TaskService
	users     *application.UserService
}

func newReportServiceAdapter(schedules *application.ScheduleService, tasks *application.TaskService, users *application.UserService) *reportServiceAdapter {
	return &reportServiceAdapter{schedules: schedules, tasks: tasks, users: users}
}

func (a *reportServiceAdapter) ListAssignments(ctx context.Context, filter application.AssignmentFilter) ([]application.Assignment, error) {
	return a.schedules.ListAssignments(ctx, filter)
}

func (a *reportServiceAdapter) ListTasks(ctx context.Context) ([]application.Task, error) {
	return a.tasks.ListTasks(ctx)
}

func (a *reportServiceAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	return a.users.ListUsers(ctx)
}

package http

import (
	"log/slog"
	"net/http"
	"strings"
)

// RouterConfig collects the handlers and cross-cutting pieces the router
// wires together. Nil handlers leave their routes unregistered, which keeps
// partial setups usable in tests.
type RouterConfig struct {
	Logger *slog.Logger

	Sessions SessionValidator

	Auth      *AuthHandler
	Users     *UserHandler
	Roles     *RoleHandler
	Tasks     *TaskHandler
	Conflicts *ConflictHandler
	Obstacles *ObstacleHandler
	Schedules *ScheduleHandler
	Reports   *ReportHandler

	// Middleware wraps the whole router, first entry outermost.
	Middleware []Middleware
}

// NewRouter assembles the HTTP routing table. Every route except POST /login
// requires a valid session.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	requireSession := RequireSession(cfg.Sessions, cfg.Logger)

	if cfg.Auth != nil {
		mux.HandleFunc("/login", func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, req)
		})
		mux.Handle("/logout", requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, req)
		})))
	}

	if cfg.Auth != nil || cfg.Users != nil {
		mux.Handle("/sessions/", requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rest := strings.Trim(strings.TrimPrefix(req.URL.Path, "/sessions/"), "/")
			switch {
			case rest == "current" && req.Method == http.MethodGet && cfg.Users != nil:
				cfg.Users.Current(w, req)
			case rest == "current" && req.Method == http.MethodDelete && cfg.Auth != nil:
				cfg.Auth.DeleteCurrentSession(w, req)
			case rest != "" && !strings.Contains(rest, "/") && req.Method == http.MethodDelete && cfg.Auth != nil:
				cfg.Auth.DeleteSession(w, req.WithContext(ContextWithResourceID(req.Context(), rest)))
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})))
	}

	if cfg.Users != nil {
		registerCollection(mux, requireSession, "/users", collectionRoutes{
			list:   cfg.Users.List,
			create: cfg.Users.Create,
			get:    cfg.Users.Get,
			update: cfg.Users.Update,
			delete: cfg.Users.Delete,
		})
	}

	if cfg.Roles != nil {
		mux.Handle("/roles/reorder", requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Roles.Reorder(w, req)
		})))
		registerCollection(mux, requireSession, "/roles", collectionRoutes{
			list:   cfg.Roles.List,
			create: cfg.Roles.Create,
			get:    cfg.Roles.Get,
			update: cfg.Roles.Update,
			delete: cfg.Roles.Delete,
		})
	}

	if cfg.Tasks != nil {
		registerCollection(mux, requireSession, "/tasks", collectionRoutes{
			list:   cfg.Tasks.List,
			create: cfg.Tasks.Create,
			get:    cfg.Tasks.Get,
			update: cfg.Tasks.Update,
			delete: cfg.Tasks.Delete,
		})
	}

	if cfg.Conflicts != nil {
		registerCollection(mux, requireSession, "/conflicts", collectionRoutes{
			list:   cfg.Conflicts.List,
			create: cfg.Conflicts.Create,
			get:    cfg.Conflicts.Get,
			update: cfg.Conflicts.Update,
			delete: cfg.Conflicts.Delete,
		})
	}

	if cfg.Obstacles != nil {
		registerCollection(mux, requireSession, "/obstacles", collectionRoutes{
			list:   cfg.Obstacles.List,
			create: cfg.Obstacles.Create,
			get:    cfg.Obstacles.Get,
			patch:  cfg.Obstacles.Patch,
			delete: cfg.Obstacles.Delete,
		})
	}

	if cfg.Schedules != nil {
		mux.Handle("/schedules/period", requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Schedules.CreatePeriod(w, req)
		})))
		mux.Handle("/schedules/available-tasks", requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Schedules.AvailableTasks(w, req)
		})))
		mux.Handle("/schedules/task/", requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rest := strings.Trim(strings.TrimPrefix(req.URL.Path, "/schedules/task/"), "/")
			taskID, suffix, _ := strings.Cut(rest, "/")
			if taskID == "" || suffix != "dependencies" {
				http.NotFound(w, req)
				return
			}
			if req.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Schedules.Dependencies(w, req.WithContext(ContextWithResourceID(req.Context(), taskID)))
		})))
		registerCollection(mux, requireSession, "/schedules", collectionRoutes{
			list:   cfg.Schedules.List,
			create: cfg.Schedules.Create,
			get:    cfg.Schedules.Get,
			update: cfg.Schedules.Update,
			delete: cfg.Schedules.Delete,
		})
	}

	if cfg.Reports != nil {
		mux.Handle("/reports/schedules", requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Reports.Schedules(w, req)
		})))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		handler = cfg.Middleware[i](handler)
	}
	return handler
}

// collectionRoutes names the per-method handlers of one REST collection.
// A nil entry means the method is not supported.
type collectionRoutes struct {
	list   http.HandlerFunc
	create http.HandlerFunc
	get    http.HandlerFunc
	update http.HandlerFunc
	patch  http.HandlerFunc
	delete http.HandlerFunc
}

// registerCollection mounts the collection root and its item routes. Item
// routes resolve the path suffix into the request context so handlers read
// the id with ResourceIDFromContext.
func registerCollection(mux *http.ServeMux, requireSession Middleware, prefix string, routes collectionRoutes) {
	mux.Handle(prefix, requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case req.Method == http.MethodGet && routes.list != nil:
			routes.list(w, req)
		case req.Method == http.MethodPost && routes.create != nil:
			routes.create(w, req)
		default:
			methodNotAllowed(w, collectionMethods(routes.list != nil, routes.create != nil)...)
		}
	})))

	mux.Handle(prefix+"/", requireSession(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := strings.Trim(strings.TrimPrefix(req.URL.Path, prefix+"/"), "/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, req)
			return
		}
		req = req.WithContext(ContextWithResourceID(req.Context(), id))

		switch {
		case req.Method == http.MethodGet && routes.get != nil:
			routes.get(w, req)
		case req.Method == http.MethodPut && routes.update != nil:
			routes.update(w, req)
		case req.Method == http.MethodPatch && routes.patch != nil:
			routes.patch(w, req)
		case req.Method == http.MethodDelete && routes.delete != nil:
			routes.delete(w, req)
		default:
			methodNotAllowed(w, itemMethods(routes)...)
		}
	})))
}

func collectionMethods(hasList, hasCreate bool) []string {
	var methods []string
	if hasList {
		methods = append(methods, http.MethodGet)
	}
	if hasCreate {
		methods = append(methods, http.MethodPost)
	}
	return methods
}

func itemMethods(routes collectionRoutes) []string {
	var methods []string
	if routes.get != nil {
		methods = append(methods, http.MethodGet)
	}
	if routes.update != nil {
		methods = append(methods, http.MethodPut)
	}
	if routes.patch != nil {
		methods = append(methods, http.MethodPatch)
	}
	if routes.delete != nil {
		methods = append(methods, http.MethodDelete)
	}
	return methods
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

package http

import (
	"net/http"
	"strings"
)

// apiPrefix is the versioned base path of the control API.
const apiPrefix = "/api/v1"

// RouterConfig lists the handlers mounted on the router. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	Alarms   *AlarmHandler
	Schedule *ScheduleHandler
	Session  *SessionHandler
}

// NewRouter wires the control API onto a plain ServeMux.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Alarms != nil {
		mux.HandleFunc(apiPrefix+"/alarms", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Alarms.List(w, r)
			case http.MethodPost:
				cfg.Alarms.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc(apiPrefix+"/alarms/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, apiPrefix+"/alarms/")
			if rest == "" {
				http.NotFound(w, r)

				return
			}

			if id, ok := strings.CutSuffix(rest, "/enabled"); ok {
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)

					return
				}

				cfg.Alarms.SetEnabled(w, r, id)

				return
			}

			if strings.Contains(rest, "/") {
				http.NotFound(w, r)

				return
			}

			switch r.Method {
			case http.MethodGet:
				cfg.Alarms.Get(w, r, rest)
			case http.MethodPut:
				cfg.Alarms.Update(w, r, rest)
			case http.MethodDelete:
				cfg.Alarms.Delete(w, r, rest)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Schedule != nil {
		mux.HandleFunc(apiPrefix+"/schedule/next", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)

				return
			}

			cfg.Schedule.Next(w, r)
		})
		mux.HandleFunc(apiPrefix+"/schedule/occurrences", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)

				return
			}

			cfg.Schedule.Occurrences(w, r)
		})
	}

	if cfg.Session != nil {
		mux.HandleFunc(apiPrefix+"/session", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)

				return
			}

			cfg.Session.Get(w, r)
		})

		actions := map[string]http.HandlerFunc{
			"confirm": cfg.Session.Confirm,
			"answer":  cfg.Session.Answer,
			"dismiss": cfg.Session.Dismiss,
			"snooze":  cfg.Session.Snooze,
		}

		for name, action := range actions {
			mux.HandleFunc(apiPrefix+"/session/"+name, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)

					return
				}

				action(w, r)
			})
		}
	}

	return mux
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cutroom/internal/demo"
	"cutroom/internal/engine"
	"cutroom/internal/engine/auth"
	"cutroom/internal/messaging"
	"cutroom/internal/stats"
)

// FallbackHeader marks responses served from the demo dataset.
const FallbackHeader = "X-Cutroom-Fallback"

// Config for the HTTP API handler.
type Config struct {
	Engine    engine.Engine
	Stats     stats.Service
	Messaging messaging.Service
	BasePath  string
	Auth      AuthConfig
	// DemoMode answers failed read paths from the demo dataset.
	DemoMode bool
	Log      *zap.Logger
	Now      func() time.Time
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"validation_failed"`
	Message string         `json:"message" example:"notes: required for a revision request"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"field\":\"notes\"}"`
}

type bodyBytesKey struct{}
type responseKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// handlers carries the services every operation reads from.
type handlers struct {
	engine    engine.Engine
	stats     stats.Service
	messaging messaging.Service
	auth      AuthConfig
	demoMode  bool
	log       *zap.Logger
	clock     func() time.Time
}

func (h *handlers) now() time.Time {
	if h.clock != nil {
		return h.clock()
	}
	return time.Now()
}

// New returns an HTTP handler exposing the cutroom API.
func New(cfg Config) (http.Handler, error) {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("server: jwt secret required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := &handlers{
		engine:    cfg.Engine,
		stats:     cfg.Stats,
		messaging: cfg.Messaging,
		auth:      cfg.Auth,
		demoMode:  cfg.DemoMode,
		log:       log,
		clock:     cfg.Now,
	}
	if h.stats.Repo.DB == nil {
		h.stats = stats.Service{Repo: cfg.Engine.Repo, Now: cfg.Now}
	}
	if h.messaging.Repo.DB == nil {
		h.messaging.Repo = cfg.Engine.Repo
	}

	installErrorEnvelope.Do(useErrorEnvelope)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), bodyBytesKey{}, bodyBytes)
			ctx = context.WithValue(ctx, responseKey{}, w)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, h, cfg.Engine.Auth))
	hcfg := huma.DefaultConfig("Cutroom API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerAuth(group, h)
	registerUsers(group, h)
	registerProjects(group, h)
	registerWorkflow(group, h)
	registerMessages(group, h)
	registerDashboard(group, h)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

// installErrorEnvelope guards the huma package globals, which are shared by
// every server in the process.
var installErrorEnvelope sync.Once

// useErrorEnvelope makes huma report errors in the API envelope.
func useErrorEnvelope() {
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// kindOf extends engine.KindOf with the list filter errors raised by stats.
func kindOf(err error) engine.Kind {
	var fe stats.FilterError
	if errors.As(err, &fe) {
		return engine.KindValidation
	}
	return engine.KindOf(err)
}

func (h *handlers) handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	}
	switch kindOf(err) {
	case engine.KindValidation:
		var details map[string]any
		var ve engine.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			details = map[string]any{"field": ve.Field}
		}
		var fe stats.FilterError
		if errors.As(err, &fe) {
			details = map[string]any{"field": fe.Field}
		}
		return newAPIError(http.StatusBadRequest, "validation_failed", err.Error(), details)
	case engine.KindPermissionDenied:
		var details map[string]any
		var fe auth.ForbiddenError
		if errors.As(err, &fe) {
			details = map[string]any{"action": fe.Action, "requirement": fe.Requirement}
		}
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), details)
	case engine.KindNotFound:
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case engine.KindSchemaMismatch:
		h.log.Error("schema mismatch", zap.Error(err))
		return newAPIError(http.StatusInternalServerError, "schema_mismatch", err.Error(), nil)
	default:
		h.log.Error("store unavailable", zap.Error(err))
		return newAPIError(http.StatusServiceUnavailable, "store_unavailable", "store unavailable", map[string]any{"error": err.Error()})
	}
}

// fallback reports whether a failed read may be answered from demo data.
// When it may, the response is marked with FallbackHeader.
func (h *handlers) fallback(ctx context.Context, err error) bool {
	if !h.demoMode || kindOf(err) != engine.KindStoreUnavailable {
		return false
	}
	if w, ok := ctx.Value(responseKey{}).(http.ResponseWriter); ok {
		w.Header().Set(FallbackHeader, "demo")
	}
	h.log.Warn("serving demo fallback", zap.Error(err))
	return true
}

func (h *handlers) demo() demo.Data {
	return demo.Load(h.now())
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "store_unavailable"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	open := map[string]bool{
		path.Join("/", basePath, "health"):     true,
		path.Join("/", basePath, "auth/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Cutroom API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Sign in with POST /auth/login and send Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

// Package httptransport is the thin HTTP layer over the risk pipeline. It
// decodes and validates requests, delegates to domain services, and
// translates domain errors exactly once.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bankguard/internal/gate"
	otpModels "bankguard/internal/otp/models"
	"bankguard/internal/platform/middleware"
	"bankguard/internal/security"
	trustModels "bankguard/internal/trust/models"
	id "bankguard/pkg/domain"
)

const requestTimeout = 30 * time.Second

// Gate is the decision surface exposed to callers.
type Gate interface {
	Evaluate(ctx context.Context, req gate.Request) (*gate.Decision, error)
	IssueStepUp(ctx context.Context, userID id.UserID, purpose otpModels.Purpose, channel otpModels.Channel, destination string) (*otpModels.IssueResult, error)
	ConfirmStepUp(ctx context.Context, userID id.UserID, purpose otpModels.Purpose, code string) (*otpModels.VerifyResult, error)
}

// Audit is the operator-facing audit log surface.
type Audit interface {
	List(ctx context.Context, filter security.Filter) ([]security.Event, error)
	Stats(ctx context.Context, from, to time.Time) (*security.Stats, error)
}

// Devices is the per-user device inventory with its trust toggle.
type Devices interface {
	ListDevices(ctx context.Context, userID id.UserID) ([]trustModels.Device, error)
	Trust(ctx context.Context, deviceID id.DeviceID) error
	RevokeTrust(ctx context.Context, deviceID id.DeviceID) error
}

type Handler struct {
	gate    Gate
	audit   Audit
	devices Devices
	logger  *slog.Logger
}

func NewHandler(g Gate, audit Audit, devices Devices, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		gate:    g,
		audit:   audit,
		devices: devices,
		logger:  logger,
	}
}

// NewRouter wires all endpoints with the standard middleware stack.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/gate/evaluate", h.handleEvaluate)
		r.Post("/stepup/issue", h.handleStepUpIssue)
		r.Post("/stepup/confirm", h.handleStepUpConfirm)
	})

	r.Get("/admin/audit", h.handleAuditList)
	r.Get("/admin/audit/stats", h.handleAuditStats)
	r.Get("/users/{user_id}/devices", h.handleDeviceList)
	r.Post("/devices/{device_id}/trust", h.handleDeviceTrust)
	r.Delete("/devices/{device_id}/trust", h.handleDeviceRevoke)

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/internal/chat"
	"github.com/Omni-crm/talpan-bot-sub000/internal/service"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/database"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

// WebhookHandler is the HTTP face of the bot: the messaging surface POSTs
// inbound events here and the handler feeds them to the dispatcher.
type WebhookHandler struct {
	dispatcher *Dispatcher
	orders     service.OrderServiceInterface
	db         *database.DB
	logger     *logger.Logger
}

// NewWebhookHandler creates a new WebhookHandler with the given dispatcher and logger
func NewWebhookHandler(dispatcher *Dispatcher, orders service.OrderServiceInterface, db *database.DB, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		orders:     orders,
		db:         db,
		logger:     logger.WithComponent("webhook_handler"),
	}
}

// Routes registers the handler's endpoints on a fresh mux.
func (h *WebhookHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/events", h.ReceiveEvent)
	mux.HandleFunc("GET /api/v1/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /healthz", h.Health)
	return mux
}

// ReceiveEvent handles POST /api/v1/events
func (h *WebhookHandler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	reqCtx := &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
	}
	h.logger.LogRequest(reqCtx)

	var event chat.Event
	if err := h.parseRequestBody(r, &event); err != nil {
		h.logger.Warn("Invalid event body", "error", err)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	if event.ChatID == 0 || event.UserID == 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "chat_id and user_id are required")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	h.dispatcher.HandleEvent(r.Context(), event)

	h.writeJSONResponse(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	reqCtx.StatusCode = http.StatusAccepted
	h.logger.LogResponse(reqCtx)
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *WebhookHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	reqCtx := &logger.RequestContext{
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		StartTime:  time.Now(),
	}
	h.logger.LogRequest(reqCtx)

	id := r.PathValue("id")
	if id == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid order ID")
		reqCtx.StatusCode = http.StatusBadRequest
		h.logger.LogResponse(reqCtx)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.logger.Warn("Failed to fetch order", "order_id", id, "error", err)
		h.writeErrorResponse(w, http.StatusNotFound, "Order not found")
		reqCtx.StatusCode = http.StatusNotFound
		h.logger.LogResponse(reqCtx)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, order)
	reqCtx.StatusCode = http.StatusOK
	h.logger.LogResponse(reqCtx)
}

// Health handles GET /healthz
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(); err != nil {
		h.logger.Error("Health check failed", "error", err)
		h.writeErrorResponse(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error("Failed to encode JSON response", "error", err)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

func (h *WebhookHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}

func (h *WebhookHandler) parseRequestBody(r *http.Request, target interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

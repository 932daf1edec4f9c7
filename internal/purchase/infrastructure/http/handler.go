package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Property-Marketplace/internal/purchase/application"
	"github.com/dmehra2102/Property-Marketplace/internal/purchase/domain"
)

type Service interface {
	CancelPropertyPurchase(ctx context.Context, propertyID string, initiatedBy domain.Role) (application.Result, error)
	ConfirmPurchase(ctx context.Context, propertyID, buyerID string) (application.Result, error)
	PurchaseStatus(ctx context.Context, propertyID string) (domain.Property, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("purchase-http"),
	}
}

type cancelReq struct {
	InitiatedBy string `json:"initiatedBy"`
}

type confirmReq struct {
	BuyerID string `json:"buyerId"`
}

type warningResp struct {
	Step   string `json:"step"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type resultResp struct {
	Status               string        `json:"status"`
	PropertyID           string        `json:"propertyId"`
	SellerID             string        `json:"sellerId,omitempty"`
	BuyerID              string        `json:"buyerId"`
	InitiatedBy          string        `json:"initiatedBy,omitempty"`
	NotificationIDs      []string      `json:"notificationIds"`
	RemovedNotifications int           `json:"removedNotifications"`
	RemovedPhotos        int           `json:"removedPhotos"`
	Warnings             []warningResp `json:"warnings"`
}

type statusResp struct {
	PropertyID               string `json:"propertyId"`
	State                    string `json:"state"`
	SellerID                 string `json:"sellerId,omitempty"`
	ConfirmedBuyerID         string `json:"confirmedBuyerId,omitempty"`
	IsUnderPurchase          bool   `json:"isUnderPurchase"`
	BuyerConfirmed           bool   `json:"buyerConfirmed"`
	SellerDocumentsConfirmed bool   `json:"sellerDocumentsConfirmed"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/properties/{id}/purchase", h.getStatus)
	r.Post("/properties/{id}/purchase", h.confirm)
	r.Post("/properties/{id}/purchase/cancel", h.cancel)
	return r
}

func (h *Handler) start(r *http.Request, name string) (context.Context, trace.Span) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	return h.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("property_id", chi.URLParam(r, "id"))))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "CancelPurchase")
	defer span.End()

	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	role, err := domain.ParseRole(req.InitiatedBy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.service.CancelPropertyPurchase(ctx, chi.URLParam(r, "id"), role)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResp("cancelled", res))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "ConfirmPurchase")
	defer span.End()

	var req confirmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	res, err := h.service.ConfirmPurchase(ctx, chi.URLParam(r, "id"), req.BuyerID)
	if err != nil {
		h.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultResp("confirmed", res))
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.start(r, "PurchaseStatus")
	defer span.End()

	p, err := h.service.PurchaseStatus(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, span, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResp{
		PropertyID:               p.ID,
		State:                    string(p.State()),
		SellerID:                 p.OwnerID,
		ConfirmedBuyerID:         p.ConfirmedBuyerID,
		IsUnderPurchase:          p.IsUnderPurchase,
		BuyerConfirmed:           p.BuyerConfirmed,
		SellerDocumentsConfirmed: p.SellerDocumentsConfirmed,
	})
}

func (h *Handler) fail(w http.ResponseWriter, span trace.Span, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.log.Error("purchase request failed", "err", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrPropertyNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoConfirmedBuyer), errors.Is(err, domain.ErrAlreadyUnderPurchase):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInitiator), errors.Is(err, domain.ErrMissingBuyer):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func toResultResp(status string, res application.Result) resultResp {
	out := resultResp{
		Status:               status,
		PropertyID:           res.PropertyID,
		SellerID:             res.SellerID,
		BuyerID:              res.BuyerID,
		InitiatedBy:          string(res.InitiatedBy),
		NotificationIDs:      res.NotificationIDs,
		RemovedNotifications: res.RemovedNotifications,
		RemovedPhotos:        res.RemovedPhotos,
		Warnings:             make([]warningResp, 0, len(res.Warnings)),
	}
	if out.NotificationIDs == nil {
		out.NotificationIDs = []string{}
	}
	for _, wn := range res.Warnings {
		out.Warnings = append(out.Warnings, warningResp{Step: string(wn.Step), Target: wn.Target, Error: wn.Err.Error()})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

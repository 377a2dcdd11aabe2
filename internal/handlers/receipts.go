package handlers

import (
	"net/http"

	"qgo-dispatch/internal/dispatch"
	"qgo-dispatch/internal/middleware"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/session"
	"qgo-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// GetReceipts lists receipts, newest first. Optional filter: ?status=
func GetReceipts(m dispatch.Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")

		receipts := []models.ReceiptEntry{}
		for _, rc := range m.State().Receipts {
			if status == "" || string(rc.Status) == status {
				receipts = append(receipts, rc)
			}
		}
		utils.RespondJSON(w, http.StatusOK, receipts)
	}
}

// CreateReceipt logs an expense. A driver always logs against their own id.
func CreateReceipt(svc *dispatch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dispatch.NewReceipt
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if sess, ok := middleware.GetSession(r); ok {
			if d, isDriver := sess.(session.Driver); isDriver {
				req.DriverID = d.ID
			}
		}

		entry, err := svc.LogReceipt(r.Context(), req)
		if err != nil {
			respondErr(w, "log receipt", err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, entry)
	}
}

type ReviewRequest struct {
	Status models.ReceiptStatus `json:"status"`
}

func ReviewReceipt(svc *dispatch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req ReviewRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := svc.ReviewReceipt(r.Context(), id, req.Status); err != nil {
			respondErr(w, "review receipt", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id, "status": req.Status})
	}
}

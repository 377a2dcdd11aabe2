package handlers

import (
	"context"
	"net/http"

	"qgo-dispatch/internal/dispatch"
	"qgo-dispatch/internal/middleware"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/session"
	"qgo-dispatch/pkg/utils"

	log "github.com/sirupsen/logrus"
)

// TokenRegistry stores driver push tokens
type TokenRegistry interface {
	Register(ctx context.Context, driverID, token, deviceType string) error
}

func currentDriver(r *http.Request) string {
	sess, _ := middleware.GetSession(r)
	d, _ := sess.(session.Driver)
	return d.ID
}

// UpdateLocation records the logged-in driver's position
func UpdateLocation(svc *dispatch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var loc models.Location
		if err := utils.DecodeJSON(r, &loc); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := svc.UpdateDriverLocation(r.Context(), currentDriver(r), loc); err != nil {
			respondErr(w, "update location", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// RegisterFCMToken stores the device's push token for the logged-in driver
func RegisterFCMToken(tokens TokenRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tokens == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Push notifications are not configured")
			return
		}

		var req struct {
			Token      string `json:"token"`
			DeviceType string `json:"device_type"`
		}
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing token")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" && req.DeviceType != "web" {
			utils.RespondError(w, http.StatusBadRequest, "Invalid device_type (must be 'ios', 'android' or 'web')")
			return
		}

		driverID := currentDriver(r)
		if err := tokens.Register(r.Context(), driverID, req.Token, req.DeviceType); err != nil {
			log.Printf("❌ Error registering FCM token: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to register FCM token")
			return
		}

		log.WithField("driver_id", driverID).Printf("📱 FCM token registered (%s)", req.DeviceType)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "FCM token registered successfully",
		})
	}
}

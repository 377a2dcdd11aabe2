package handlers

import (
	"net/http"
	"time"

	"qgo-dispatch/internal/dispatch"
	"qgo-dispatch/internal/middleware"
	"qgo-dispatch/internal/session"
	"qgo-dispatch/internal/views"
	"qgo-dispatch/pkg/utils"

	log "github.com/sirupsen/logrus"
)

type LoginRequest struct {
	Role     session.Role `json:"role"`
	DriverID string       `json:"driverId"`
	Password string       `json:"password"`
}

type LoginResponse struct {
	OK      bool           `json:"ok"`
	Session session.Record `json:"session"`
	Token   string         `json:"token,omitempty"`
}

// Login persists the chosen identity in the device's storage. Admin login
// is trusted; drivers must match a mirrored driver record and password.
func Login(svc *dispatch.Service, devices middleware.Devices, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, _ := middleware.GetDeviceID(r)

		var req LoginRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		log.WithField("device_id", deviceID).Printf("🔐 Login attempt: %s %s", req.Role, req.DriverID)

		sess, err := session.New(req.Role, req.DriverID)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if d, ok := sess.(session.Driver); ok {
			if _, err := svc.AuthenticateDriver(d.ID, req.Password); err != nil {
				log.Printf("❌ Driver login refused for %s: %v", d.ID, err)
				utils.RespondJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
				return
			}
		}

		if err := session.NewStore(devices.Device(deviceID)).Login(r.Context(), sess); err != nil {
			log.Printf("❌ Failed to persist session: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save session")
			return
		}

		resp := LoginResponse{OK: true, Session: session.ToRecord(sess)}
		if jwtSecret != "" {
			token, err := middleware.IssueToken(jwtSecret, sess, deviceID, time.Now())
			if err != nil {
				log.Printf("❌ Failed to create token: %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
				return
			}
			resp.Token = token
		}

		log.WithField("device_id", deviceID).Printf("✅ Login successful: %s", sess.Role())
		utils.RespondJSON(w, http.StatusOK, resp)
	}
}

func Logout(devices middleware.Devices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID, _ := middleware.GetDeviceID(r)
		if err := session.NewStore(devices.Device(deviceID)).Logout(r.Context()); err != nil {
			log.Printf("❌ Failed to clear session: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to clear session")
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// GetSession returns the restored session of the device
func GetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.GetSession(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not logged in")
			return
		}
		utils.RespondJSON(w, http.StatusOK, session.ToRecord(sess))
	}
}

// GetView renders the dashboard or portal of the current session
func GetView(m dispatch.Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := middleware.GetSession(r)
		utils.RespondJSON(w, http.StatusOK, views.Build(sess, m.State()))
	}
}

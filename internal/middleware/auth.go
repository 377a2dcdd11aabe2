package middleware

import (
	"context"
	"net/http"
	"strings"

	"qgo-dispatch/internal/session"
	"qgo-dispatch/pkg/utils"

	log "github.com/sirupsen/logrus"
)

// DeviceHeader names the browser installation making the request
const DeviceHeader = "X-Device-ID"

type contextKey string

const (
	sessionContextKey contextKey = "session"
	deviceContextKey  contextKey = "device"
)

// Devices hands out the local storage of one device
type Devices interface {
	Device(id string) session.KV
}

// Session restores the device's persisted session into the request context.
// A valid Bearer token takes precedence over the device storage.
func Session(devices Devices, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deviceID := r.Header.Get(DeviceHeader)

			if sess, claims, ok := bearerSession(r, jwtSecret); ok {
				if deviceID == "" {
					deviceID = claims.DeviceID
				}
				ctx = context.WithValue(ctx, sessionContextKey, sess)
			} else if deviceID != "" {
				sess, found, err := session.NewStore(devices.Device(deviceID)).Restore(ctx)
				if err != nil {
					log.WithField("device_id", deviceID).Printf("⚠️  Ignoring stored session: %v", err)
				} else if found {
					ctx = context.WithValue(ctx, sessionContextKey, sess)
				}
			}

			if deviceID != "" {
				ctx = context.WithValue(ctx, deviceContextKey, deviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerSession(r *http.Request, secret string) (session.Session, *Claims, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, false
	}

	claims, err := ParseToken(secret, parts[1])
	if err != nil {
		log.Printf("❌ Invalid bearer token: %v", err)
		return nil, nil, false
	}
	sess, err := claims.Session()
	if err != nil {
		log.Printf("❌ Invalid session in token: %v", err)
		return nil, nil, false
	}
	return sess, claims, true
}

// RequireSession rejects requests without a logged-in session
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSession(r); !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole checks the session role (must be used after Session)
func RequireRole(roles ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSession(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "Not logged in")
				return
			}

			for _, role := range roles {
				if sess.Role() == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Printf("❌ Insufficient permissions: required %v, got %s", roles, sess.Role())
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// RequireDevice rejects requests without a device id
func RequireDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetDeviceID(r); !ok {
			utils.RespondError(w, http.StatusBadRequest, "Missing "+DeviceHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetSession(r *http.Request) (session.Session, bool) {
	sess, ok := r.Context().Value(sessionContextKey).(session.Session)
	return sess, ok && sess != nil
}

func GetDeviceID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(deviceContextKey).(string)
	return id, ok && id != ""
}

package handlers

import (
	"net/http"

	"qgo-dispatch/internal/mirror"
	"qgo-dispatch/internal/views"
	"qgo-dispatch/pkg/utils"
)

// SyncSource is the controller as seen by the status endpoints
type SyncSource interface {
	State() *mirror.State
	Configured() bool
	Subscriptions() int
}

type SyncStatus struct {
	views.Sync
	Configured    bool `json:"configured"`
	Subscriptions int  `json:"subscriptions"`
}

func GetSyncStatus(src SyncSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, SyncStatus{
			Sync:          views.SyncOf(src.State()),
			Configured:    src.Configured(),
			Subscriptions: src.Subscriptions(),
		})
	}
}

// GetRemediationRules serves the permissive Firestore rules offered when
// listeners are rejected
func GetRemediationRules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mirror.RemediationRules))
	}
}

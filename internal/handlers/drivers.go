package handlers

import (
	"net/http"

	"qgo-dispatch/internal/dispatch"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// GetDrivers lists mirrored drivers without their passwords
func GetDrivers(m dispatch.Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := m.State()
		status := r.URL.Query().Get("status")

		drivers := make([]models.DriverResponse, 0, len(state.Drivers))
		for i := range state.Drivers {
			if status != "" && string(state.Drivers[i].Status) != status {
				continue
			}
			drivers = append(drivers, state.Drivers[i].ToDriverResponse())
		}
		utils.RespondJSON(w, http.StatusOK, drivers)
	}
}

func CreateDriver(svc *dispatch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dispatch.NewDriver
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		driver, err := svc.AddDriver(r.Context(), req)
		if err != nil {
			respondErr(w, "create driver", err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, driver.ToDriverResponse())
	}
}

func UpdateDriver(svc *dispatch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req dispatch.DriverUpdate
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := svc.UpdateDriver(r.Context(), id, req); err != nil {
			respondErr(w, "update driver", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": id})
	}
}

func DeleteDriver(svc *dispatch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteDriver(r.Context(), chi.URLParam(r, "id")); err != nil {
			respondErr(w, "delete driver", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

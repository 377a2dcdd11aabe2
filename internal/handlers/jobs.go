package handlers

import (
	"net/http"

	"qgo-dispatch/internal/dispatch"
	"qgo-dispatch/internal/middleware"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/session"
	"qgo-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// GetJobs lists mirrored jobs, newest assignment first.
// Optional filters: ?driverId= and ?status=
func GetJobs(m dispatch.Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		driverID, status := q.Get("driverId"), q.Get("status")

		jobs := []models.Job{}
		for _, j := range m.State().Jobs {
			if driverID != "" && j.DriverID != driverID {
				continue
			}
			if status != "" && string(j.Status) != status {
				continue
			}
			jobs = append(jobs, j)
		}
		utils.RespondJSON(w, http.StatusOK, jobs)
	}
}

func CreateJob(svc *dispatch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dispatch.NewJob
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		job, err := svc.AddJob(r.Context(), req)
		if err != nil {
			respondErr(w, "create job", err)
			return
		}
		utils.RespondJSON(w, http.StatusCreated, job)
	}
}

type StatusRequest struct {
	Status models.JobStatus `json:"status"`
}

// UpdateJobStatus advances a job. Drivers may only move their own jobs.
func UpdateJobStatus(svc *dispatch.Service, m dispatch.Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "id")
		sess, _ := middleware.GetSession(r)

		var req StatusRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		if d, ok := sess.(session.Driver); ok {
			job, found := m.State().Job(jobID)
			if found && job.DriverID != d.ID {
				log.WithFields(log.Fields{"job_id": jobID, "driver_id": d.ID}).Println("❌ Driver tried to move another driver's job")
				utils.RespondError(w, http.StatusForbidden, "Job is assigned to another driver")
				return
			}
		}

		if err := svc.AdvanceJobStatus(r.Context(), jobID, req.Status); err != nil {
			respondErr(w, "update job status", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": jobID, "status": req.Status})
	}
}

package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/medrecord"
	"github.com/hackgods/clinic-scheduling/internal/report"
)

// recentPerPatient is how many shared appointments the attended patients
// view shows.
const recentPerPatient = 3

func appointmentRecordHandler(svc *medrecord.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		entry, err := svc.ForAppointment(r.Context(), principal(r), id)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func listRecordsHandler(svc *medrecord.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := queryUUID(r, "patient_id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		entries, err := svc.List(r.Context(), principal(r), patientID)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func seenPatientsHandler(records *medrecord.Service, appts *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialistID, err := pathUUID(r, "id")
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		ids, err := records.PatientsSeenBy(r.Context(), principal(r), specialistID)
		if err != nil {
			handleError(log, w, r, err)
			return
		}

		out := make([]SeenPatient, 0, len(ids))
		for _, id := range ids {
			recent, err := appts.RecentWith(r.Context(), id, specialistID, recentPerPatient)
			if err != nil {
				handleError(log, w, r, err)
				return
			}
			out = append(out, SeenPatient{PatientID: id, Recent: recent})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func appointmentReportHandler(svc *report.Service, loc *time.Location, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := queryDate(r, "from", loc, false)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		to, err := queryDate(r, "to", loc, true)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		sum, err := svc.Appointments(r.Context(), principal(r), from, to)
		if err != nil {
			handleError(log, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

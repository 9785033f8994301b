package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// @Summary      Poll the event journal
// @Description  Fallback for clients without a live websocket: returns journal entries newer than 'since' (at most 100).
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        since  query  int  false  "Last event ID already seen"
// @Success      200  {array}  database.Event
// @Router       /events [get]
func (s *Server) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var sinceID int64
	if since := r.URL.Query().Get("since"); since != "" {
		parsed, err := strconv.ParseInt(since, 10, 64)
		if err != nil {
			http.Error(w, "Invalid 'since' parameter", http.StatusBadRequest)
			return
		}
		sinceID = parsed
	}

	events, err := s.store.GetEventsSince(r.Context(), claims.UserID, sinceID)
	if err != nil {
		http.Error(w, "Failed to fetch events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

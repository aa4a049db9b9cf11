package handlers

import (
	"net/http"

	"mindtrack/pkg/common"
)

// MsgMethodNotAllowed is returned for the wrong method on the POST-only
// endpoints
const MsgMethodNotAllowed = "Method not allowed"

// DataResponse wraps query results
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func respondData(w http.ResponseWriter, data interface{}) {
	common.RespondJSON(w, http.StatusOK, DataResponse{Success: true, Data: data})
}

// requirePost answers 405 for anything but POST and reports whether the
// request may proceed
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	common.RespondMessage(w, http.StatusMethodNotAllowed, false, MsgMethodNotAllowed)
	return false
}

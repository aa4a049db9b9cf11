package common

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
)

// DefaultMaxBodyBytes caps JSON request bodies
const DefaultMaxBodyBytes = 1 << 20

// RespondJSON writes data as the JSON body with the given status
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// MessageResponse is the {success, message} shape used by the journal and
// login endpoints
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RespondMessage writes a {success, message} body
func RespondMessage(w http.ResponseWriter, status int, success bool, message string) {
	RespondJSON(w, status, MessageResponse{Success: success, Message: message})
}

// ParseStringFields decodes a JSON object body with a size limit and
// returns its string-valued members. Members of any other type are left
// out, so one mistyped field does not hide the others. An empty body yields
// an empty map; a body that is not a JSON object yields an empty map and
// the decode error.
func ParseStringFields(w http.ResponseWriter, r *http.Request, maxBytes int64) (map[string]string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	fields := map[string]string{}
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		if err == io.EOF {
			return fields, nil
		}
		return fields, err
	}
	for key, value := range raw {
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			fields[key] = s
		}
	}
	return fields, nil
}

// ClientIP returns the host part of RemoteAddr. Proxy headers are not read
// here; when proxies are trusted, chi's RealIP middleware applies them first.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

/**
 * @description
 * JSON response helpers shared by every handler. All responses carry a `status`
 * discriminator: "success" for 2xx, "fail" for client errors, "error" for server
 * faults. Additional fields are merged alongside the discriminator so each
 * endpoint controls its own payload shape.
 */

package api

import (
	"encoding/json"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, httpStatus int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func writeSuccess(w http.ResponseWriter, httpStatus int, data map[string]any) {
	payload := map[string]any{"status": "success"}
	for k, v := range data {
		payload[k] = v
	}
	writeJSON(w, httpStatus, payload)
}

func writeFail(w http.ResponseWriter, httpStatus int, message string, extra map[string]any) {
	payload := map[string]any{"status": "fail", "message": message}
	for k, v := range extra {
		payload[k] = v
	}
	writeJSON(w, httpStatus, payload)
}

func writeError(w http.ResponseWriter, httpStatus int, message string) {
	writeJSON(w, httpStatus, map[string]any{"status": "error", "message": message})
}

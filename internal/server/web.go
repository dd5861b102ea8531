package server

import (
	"encoding/json"
	"net/http"

	"github.com/randalarm/randalarm/common"
)

// Handler routes the daemon endpoints: the authenticated JSON-RPC
// WebSocket and the unauthenticated health probe.
func (rs *RPCServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(common.WSPath, requireToken(rs.secret, http.HandlerFunc(rs.handleWS)))
	mux.HandleFunc(common.HealthPath, handleHealth)
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_ = json.NewEncoder(w).Encode(common.HealthResponse{Status: "ok"})
	}
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/tokenkit"
)

const (
	detailTokenInvalid = "Token is invalid or expired"
	detailNoAccount    = "No active account found with the given credentials"
	detailBadPayload   = "Malformed request body"
	detailInternal     = "Internal server error"
)

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorBody{Detail: detail})
}

func respondTokenInvalid(w http.ResponseWriter) {
	respondJSON(w, http.StatusUnauthorized, errorBody{
		Detail: detailTokenInvalid,
		Code:   tokenkit.CodeTokenNotValid,
	})
}

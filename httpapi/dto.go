package httpapi

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type pairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

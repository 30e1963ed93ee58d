package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/MrEthical07/tokenkit"
	"github.com/MrEthical07/tokenkit/credentials"
	"github.com/MrEthical07/tokenkit/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 64 << 10

// CredentialVerifier checks a username and password and returns the subject to issue
// tokens for. Errors matching credentials.ErrInvalidCredentials or credentials.ErrInactive
// answer 401; anything else answers 500.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (string, error)
}

// Server holds the handlers. Build one with New and mount it with Routes or Handler.
type Server struct {
	engine   *tokenkit.Engine
	creds    CredentialVerifier
	logger   logrus.FieldLogger
	validate *validator.Validate
}

// New returns a Server. creds may be nil, in which case the obtain routes answer 501.
func New(engine *tokenkit.Engine, creds CredentialVerifier, logger logrus.FieldLogger) *Server {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Server{
		engine:   engine,
		creds:    creds,
		logger:   logger.WithField("component", "httpapi"),
		validate: v,
	}
}

// Routes registers every route on r.
func (s *Server) Routes(r *mux.Router) {
	r.HandleFunc("/token/", s.ObtainPair).Methods(http.MethodPost)
	r.HandleFunc("/token/refresh/", s.RefreshPair).Methods(http.MethodPost)
	r.HandleFunc("/token/sliding/", s.ObtainSliding).Methods(http.MethodPost)
	r.HandleFunc("/token/sliding/refresh/", s.RefreshSliding).Methods(http.MethodPost)
	r.HandleFunc("/token/verify/", s.Verify).Methods(http.MethodPost)
	r.HandleFunc("/token/revoke/", s.Revoke).Methods(http.MethodPost)
	r.Handle("/token/introspect/", middleware.Guard(s.engine)(http.HandlerFunc(s.Introspect))).Methods(http.MethodGet)
	r.HandleFunc("/.well-known/jwks.json", s.JWKS).Methods(http.MethodGet)
}

// Handler returns a router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.Routes(r)
	return r
}

// ObtainPair handles POST /token/: credentials in, access and refresh tokens out.
func (s *Server) ObtainPair(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}
	subject, ok := s.authenticate(w, r, req)
	if !ok {
		return
	}

	pair, err := s.engine.IssuePair(r.Context(), subject, nil)
	if err != nil {
		s.internalError(w, err, "issue pair failed")
		return
	}
	respondJSON(w, http.StatusOK, pairResponse{Access: pair.Access, Refresh: pair.Refresh})
}

// RefreshPair handles POST /token/refresh/ and returns a new access token, plus a rotated
// refresh token when rotation is on.
func (s *Server) RefreshPair(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.engine.Refresh(r.Context(), req.Refresh)
	if err != nil {
		s.tokenError(w, err, "refresh failed")
		return
	}
	respondJSON(w, http.StatusOK, refreshResponse{Access: res.Access, Refresh: res.Refresh})
}

// ObtainSliding handles POST /token/sliding/: credentials in, one sliding token out.
func (s *Server) ObtainSliding(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}
	subject, ok := s.authenticate(w, r, req)
	if !ok {
		return
	}

	tok, err := s.engine.IssueSlidingFor(r.Context(), subject, nil)
	if err != nil {
		s.internalError(w, err, "issue sliding failed")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{Token: tok})
}

// RefreshSliding handles POST /token/sliding/refresh/ and returns the extended token.
func (s *Server) RefreshSliding(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !s.decode(w, r, &req) {
		return
	}

	tok, err := s.engine.ExtendSliding(r.Context(), req.Token)
	if err != nil {
		s.tokenError(w, err, "sliding extension failed")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{Token: tok})
}

// Verify handles POST /token/verify/ and answers {} for any valid token regardless of type.
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !s.decode(w, r, &req) {
		return
	}

	if _, err := s.engine.Verify(r.Context(), req.Token); err != nil {
		s.tokenError(w, err, "verify failed")
		return
	}
	respondJSON(w, http.StatusOK, struct{}{})
}

// Revoke handles POST /token/revoke/ and denylists the token's identifier.
func (s *Server) Revoke(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.engine.Revoke(r.Context(), req.Token); err != nil {
		s.tokenError(w, err, "revoke failed")
		return
	}
	respondJSON(w, http.StatusOK, struct{}{})
}

// Introspect echoes the claims of the bearer token verified by middleware.Guard.
func (s *Server) Introspect(w http.ResponseWriter, r *http.Request) {
	tok, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		respondTokenInvalid(w)
		return
	}
	respondJSON(w, http.StatusOK, tok.Claims())
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, req credentialsRequest) (string, bool) {
	if s.creds == nil {
		respondDetail(w, http.StatusNotImplemented, "Credential verification is not configured")
		return "", false
	}
	subject, err := s.creds.Verify(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		return subject, true
	case errors.Is(err, credentials.ErrInvalidCredentials), errors.Is(err, credentials.ErrInactive):
		s.logger.WithError(err).Info("credential check refused")
		respondDetail(w, http.StatusUnauthorized, detailNoAccount)
	default:
		s.internalError(w, err, "credential check failed")
	}
	return "", false
}

// decode reads a JSON body into dst and validates it. On failure the response is written
// and false returned.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respondDetail(w, http.StatusBadRequest, detailBadPayload)
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			respondDetail(w, http.StatusBadRequest, detailBadPayload)
			return false
		}
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], "This field is required.")
		}
		respondJSON(w, http.StatusBadRequest, fields)
		return false
	}
	return true
}

func (s *Server) tokenError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, tokenkit.ErrTokenInvalid):
		reason, _ := tokenkit.ReasonOf(err)
		s.logger.WithField("reason", reason).Info(msg)
		respondTokenInvalid(w)
	case errors.Is(err, tokenkit.ErrRevocationUnsupported):
		respondDetail(w, http.StatusNotImplemented, "Token revocation is not configured")
	case errors.Is(err, tokenkit.ErrRevocationFailed):
		s.logger.WithError(err).Error(msg)
		respondDetail(w, http.StatusServiceUnavailable, "Token revocation is unavailable")
	default:
		s.internalError(w, err, msg)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	s.logger.WithError(err).Error(msg)
	respondDetail(w, http.StatusInternalServerError, detailInternal)
}

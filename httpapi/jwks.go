package httpapi

import (
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWKS publishes the verifying key as a JWK set. HMAC codecs have nothing public to
// publish and answer 404.
func (s *Server) JWKS(w http.ResponseWriter, r *http.Request) {
	codec := s.engine.Codec()
	pub := codec.PublicKey()
	if pub == nil {
		respondDetail(w, http.StatusNotFound, "No public key is published for this signing algorithm")
		return
	}

	key, err := jwk.FromRaw(pub)
	if err != nil {
		s.internalError(w, err, "jwk conversion failed")
		return
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(codec.Algorithm())); err != nil {
		s.internalError(w, err, "jwk alg set failed")
		return
	}
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		s.internalError(w, err, "jwk use set failed")
		return
	}
	if kid := codec.KeyID(); kid != "" {
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			s.internalError(w, err, "jwk kid set failed")
			return
		}
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		s.internalError(w, err, "jwk set build failed")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	respondJSON(w, http.StatusOK, set)
}

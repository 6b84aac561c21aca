// Package apikey authenticates static API keys presented as bearer
// tokens. Keys live in configuration as plaintext but are kept in
// memory only as SHA-256 digests, compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/ensembled/ensemble/pkg/auth"
)

// Key pairs one plaintext API key with the identity it grants.
type Key struct {
	Token    string
	Identity auth.Identity
}

// Keyring authenticates bearer tokens against a fixed key set. Digests
// and identities are parallel slices; every lookup scans all digests so
// timing does not reveal which key matched.
type Keyring struct {
	digests    [][sha256.Size]byte
	identities []auth.Identity
}

// New builds a keyring. Plaintext tokens are digested immediately and
// not retained.
func New(keys []Key) *Keyring {
	k := &Keyring{}
	for _, e := range keys {
		k.digests = append(k.digests, sha256.Sum256([]byte(e.Token)))
		k.identities = append(k.identities, e.Identity)
	}
	return k
}

// Authenticate votes on the request's bearer token: Abstained without
// one, Denied for an empty or unknown token, Granted with a copy of the
// matching key's identity.
func (k *Keyring) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstained}
	}
	if token == "" {
		return auth.Result{Decision: auth.Denied, Err: auth.ErrUnauthenticated}
	}

	digest := sha256.Sum256([]byte(token))

	match := -1
	for i := range k.digests {
		if subtle.ConstantTimeCompare(digest[:], k.digests[i][:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return auth.Result{Decision: auth.Denied, Err: auth.ErrUnauthenticated}
	}

	id := k.identities[match]
	return auth.Result{Decision: auth.Granted, Identity: &id}
}

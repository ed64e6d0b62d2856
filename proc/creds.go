package proc

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sprocd/sprocd/cmn/cos"
)

// ownerClaims is the materialized owner credential spec.md §4.G's
// setuid step caches on first use ("materialize owner_credentials by
// looking up the owner user"). Representing it as a short-lived signed
// token — rather than a bare struct — is this runtime's stand-in for
// the original's "materialized OS credentials": it lets a credential
// be handed across a yield point and independently verified without
// re-touching the user store, and it naturally expires instead of
// living forever in memory.
type ownerClaims struct {
	jwt.RegisteredClaims
	User string `json:"usr"`
}

// credCache caches one signed token per owner user id, refreshed once
// it's within credRefreshSkew of expiring.
type credCache struct {
	key    []byte
	ttl    time.Duration
	tokens map[string]cachedToken
}

type cachedToken struct {
	raw     string
	expires time.Time
}

const (
	credTTL        = 15 * time.Minute
	credRefreshSkew = time.Minute
)

func newCredCache(signingKey []byte) *credCache {
	return &credCache{key: signingKey, ttl: credTTL, tokens: make(map[string]cachedToken)}
}

// materialize returns (and, on expiry, refreshes) the signed
// credential token standing in for owner's materialized identity.
func (c *credCache) materialize(owner string) (string, error) {
	if t, ok := c.tokens[owner]; ok && time.Until(t.expires) > credRefreshSkew {
		return t.raw, nil
	}
	expires := time.Now().Add(c.ttl)
	claims := ownerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        cos.GenID(), // unique per mint, so a re-materialized token never repeats a dropped one
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		User: owner,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.key)
	if err != nil {
		return "", cos.NewSystemError("signing owner credential for "+owner, err)
	}
	c.tokens[owner] = cachedToken{raw: signed, expires: expires}
	return signed, nil
}

// verify parses a previously materialized token and returns its
// subject user id.
func (c *credCache) verify(raw string) (string, error) {
	claims := &ownerClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return "", cos.NewAccessDenied(claims.User, "credential verification")
	}
	return claims.User, nil
}

// drop releases owner's cached credential (Function destruction
// releases owner_credentials per spec.md §4.G).
func (c *credCache) drop(owner string) { delete(c.tokens, owner) }

package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"liver-quiz-service/internal/domain"
	"liver-quiz-service/internal/i18n"
)

const identityKey = "quiz.identity"

// Claims is the subset of a Supabase access token the service reads.
// The user id travels in the standard sub claim.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

// Authenticator verifies HS256 access tokens signed with the project secret.
// A zero secret disables verification and every caller is anonymous.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Authenticator{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

// Enabled reports whether tokens are verified at all.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

// Parse verifies tok and returns the identity it carries.
func (a *Authenticator) Parse(tok string) (domain.Identity, error) {
	claims := &Claims{}
	t, err := a.parser.ParseWithClaims(tok, claims, func(*jwt.Token) (interface{}, error) { return a.secret, nil })
	if err != nil {
		return domain.Identity{}, err
	}
	if !t.Valid || claims.Subject == "" {
		return domain.Identity{}, errInvalidToken
	}
	return domain.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Middleware attaches the caller's identity. Requests without a token are
// anonymous; a token that fails verification is rejected.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" || !a.Enabled() {
			c.Next()
			return
		}
		identity, err := a.Parse(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token", "detail": err.Error()})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the access_token
// query parameter since browsers cannot set headers on websocket upgrades.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("access_token")
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identityFrom(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": i18n.T(localeFrom(c), "auth.login_required"),
				"kind":  "not_authenticated",
			})
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(domain.Identity); ok {
			return identity
		}
	}
	return domain.Identity{}
}

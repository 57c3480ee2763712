package http

import (
	"errors"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/studygroup/groupchat-server/internal/auth"
	"github.com/studygroup/groupchat-server/internal/config"
	"github.com/studygroup/groupchat-server/internal/core"
)

// IdentityError is a handshake or request rejected before it reaches the core.
type IdentityError struct {
	Status int
	Reason string
}

func (e *IdentityError) Error() string {
	return e.Reason
}

func badRequest(format string, args ...any) *IdentityError {
	return &IdentityError{Status: stdhttp.StatusBadRequest, Reason: fmt.Sprintf(format, args...)}
}

// IdentityResolver extracts the caller from a request. With a JWT secret
// configured the caller comes from a signed token; otherwise the portal passes
// userId, userType and userName as query parameters or X-User-* headers.
type IdentityResolver struct {
	jwt *auth.JWTConfig
}

// NewIdentityResolver picks the identity mode from cfg.
func NewIdentityResolver(cfg *config.Config) *IdentityResolver {
	r := &IdentityResolver{}
	if cfg.JWTEnabled() {
		r.jwt = &auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      cfg.JWTTTL,
		}
	}
	return r
}

// Resolve returns the caller's identity or an *IdentityError.
func (r *IdentityResolver) Resolve(req *stdhttp.Request) (core.Identity, error) {
	if r.jwt != nil {
		return r.fromToken(req)
	}
	return fromParams(req)
}

func (r *IdentityResolver) fromToken(req *stdhttp.Request) (core.Identity, error) {
	token := req.URL.Query().Get("token")
	if token == "" {
		if header := req.Header.Get("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = parts[1]
			}
		}
	}
	if token == "" {
		return core.Identity{}, &IdentityError{Status: stdhttp.StatusUnauthorized, Reason: "missing token"}
	}

	claims, err := auth.ValidateToken(r.jwt, token)
	if err != nil {
		return core.Identity{}, &IdentityError{Status: stdhttp.StatusUnauthorized, Reason: "invalid or expired token"}
	}

	role := core.Role(claims.UserType)
	if !role.Valid() {
		return core.Identity{}, &IdentityError{Status: stdhttp.StatusUnauthorized, Reason: "invalid or expired token"}
	}
	return core.Identity{UserID: claims.UserID, Role: role, Name: claims.UserName}, nil
}

func fromParams(req *stdhttp.Request) (core.Identity, error) {
	rawID := param(req, "userId", "X-User-Id")
	rawType := param(req, "userType", "X-User-Type")
	if rawID == "" || rawType == "" {
		return core.Identity{}, badRequest("userId and userType are required")
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || userID <= 0 {
		return core.Identity{}, badRequest("invalid userId %q", rawID)
	}

	role := core.Role(rawType)
	if !role.Valid() {
		return core.Identity{}, badRequest("userType must be %q or %q", core.RoleStudent, core.RoleFaculty)
	}

	return core.Identity{
		UserID: userID,
		Role:   role,
		Name:   param(req, "userName", "X-User-Name"),
	}, nil
}

func param(req *stdhttp.Request, query, header string) string {
	if v := strings.TrimSpace(req.URL.Query().Get(query)); v != "" {
		return v
	}
	return strings.TrimSpace(req.Header.Get(header))
}

// parseGroupID reads a positive group id.
func parseGroupID(raw string) (int64, error) {
	if raw == "" {
		return 0, badRequest("groupId is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid groupId %q", raw)
	}
	return id, nil
}

func identityStatus(err error) int {
	var idErr *IdentityError
	if errors.As(err, &idErr) {
		return idErr.Status
	}
	return stdhttp.StatusBadRequest
}

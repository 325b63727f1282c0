package middleware

import (
	"document-vault/internal/auth"
	"document-vault/internal/domain"
	"document-vault/internal/errors"
	"strings"

	"github.com/gin-gonic/gin"
)

// PrincipalKey is where the verified principal lives on the gin context.
// A missing key means the request is anonymous.
const PrincipalKey = "principal"

type UserProvider interface {
	GetUserByID(id uint64) (*domain.User, error)
}

type Auth struct {
	UserService    UserProvider
	InternalSecret string
}

// Required rejects requests that do not carry a valid principal.
func (m *Auth) Required() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		principal, err := m.verify(ctx)
		if err != nil {
			ctx.Error(err)
			ctx.Abort()
			return
		}

		ctx.Set(PrincipalKey, principal)
		ctx.Next()
	}
}

// Optional lets anonymous requests through without a principal; public
// resources are readable without a session. A token that is present but
// invalid is still rejected rather than silently downgraded to anonymous.
func (m *Auth) Optional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if extractToken(ctx) == "" {
			ctx.Next()
			return
		}

		principal, err := m.verify(ctx)
		if err != nil {
			ctx.Error(err)
			ctx.Abort()
			return
		}

		ctx.Set(PrincipalKey, principal)
		ctx.Next()
	}
}

func (m *Auth) verify(ctx *gin.Context) (*domain.Principal, error) {
	token := extractToken(ctx)
	if token == "" {
		return nil, errors.Unauthorized("Authorization is not found!", nil)
	}

	parsedToken, err := auth.VerifyJWT(token)
	if err != nil {
		return nil, errors.Unauthorized("Invalid token!", err)
	}

	userID, tokenVersion, err := auth.GetDataFromToken(parsedToken)
	if err != nil {
		return nil, errors.Unauthorized("Invalid token!", err)
	}

	user, err := m.UserService.GetUserByID(userID)
	if err != nil {
		return nil, errors.Unauthorized("Invalid User ID!", err)
	}

	// Check token version
	if user.TokenVersion != tokenVersion {
		return nil, errors.Unauthorized("Invalid token version!", nil)
	}

	if !user.IsActive {
		return nil, errors.Unauthorized("User is not active!", nil)
	}

	return &domain.Principal{ID: user.ID, Role: user.Role}, nil
}

func extractToken(ctx *gin.Context) string {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ctx.Query("token")
}

func (m *Auth) InternalAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := strings.TrimPrefix(
			ctx.GetHeader("Authorization"),
			"Bearer ",
		)

		if token != m.InternalSecret {
			ctx.Error(errors.Unauthorized("Unauthorized internal call!", nil))
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

// CurrentPrincipal returns the request's principal, nil when anonymous.
func CurrentPrincipal(ctx *gin.Context) *domain.Principal {
	value, ok := ctx.Get(PrincipalKey)
	if !ok {
		return nil
	}
	principal, ok := value.(*domain.Principal)
	if !ok {
		return nil
	}
	return principal
}

package folio

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL    = 24 * time.Hour
	tokenIssuer = "folio"
	sessionUser = "user"
)

// AuthMethod records how a request was authenticated.
type AuthMethod string

const (
	AuthSession AuthMethod = "session"
	AuthToken   AuthMethod = "token"
	AuthBypass  AuthMethod = "bypass"
)

// Principal is the authenticated admin behind a request.
type Principal struct {
	User   string
	Method AuthMethod
}

// ErrUnauthenticated is returned by Authenticate when a request carries no
// valid credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// AdminHandlerFunc is a handler that runs only for authenticated admins.
type AdminHandlerFunc func(c echo.Context, p Principal) error

// Authenticate resolves the admin behind c from a bearer token or the
// session cookie.
func (a *App) Authenticate(c echo.Context) (Principal, error) {
	if a.authBypass != "" {
		return Principal{User: a.authBypass, Method: AuthBypass}, nil
	}
	if raw, ok := bearerToken(c); ok {
		return a.verifyToken(raw)
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}
	user, ok := sess.Values[sessionUser].(string)
	if !ok || user == "" || user != a.Config.AdminUser {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{User: user, Method: AuthSession}, nil
}

// IsAdmin reports whether c is authenticated.
func (a *App) IsAdmin(c echo.Context) bool {
	_, err := a.Authenticate(c)
	return err == nil
}

// requireAdmin guards HTML admin pages; anonymous visitors go to the login form.
func (a *App) requireAdmin(h AdminHandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := a.Authenticate(c)
		if err != nil {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return h(c, p)
	}
}

// requireAdminAPI guards JSON endpoints.
func (a *App) requireAdminAPI(h AdminHandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := a.Authenticate(c)
		if err != nil {
			return jsonMessage(c, http.StatusUnauthorized, "Unauthorized")
		}
		return h(c, p)
	}
}

func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// checkCredentials compares user and password against the configured admin.
func (a *App) checkCredentials(user, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.Config.AdminUser)) == 1
	var passOK bool
	if a.Config.AdminPasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(a.Config.AdminPasswordHash), []byte(password)) == nil
	} else if a.Config.AdminPassword != "" {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.Config.AdminPassword)) == 1
	}
	return userOK && passOK
}

// issueToken signs an API token for user.
func (a *App) issueToken(user string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   user,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.Config.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (a *App) verifyToken(raw string) (Principal, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.Config.TokenSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject != a.Config.AdminUser {
		return Principal{}, ErrUnauthenticated
	}
	return Principal{User: claims.Subject, Method: AuthToken}, nil
}

func setAdminSession(c echo.Context, user string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[sessionUser] = user
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

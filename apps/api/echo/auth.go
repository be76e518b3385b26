package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

const (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher    bool     `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin      bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles        []string `json:"roles,omitempty"`
}

type jwtAuth struct {
	conf   *core.Config
	svc    user.ServiceInterface
	config middleware.JWTConfig
}

func newJWTAuth(conf *core.Config, svc user.ServiceInterface) *jwtAuth {
	return &jwtAuth{
		conf: conf,
		svc:  svc,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    jwtContextKey,
			Claims:        new(Claims),
		},
	}
}

func (a *jwtAuth) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(a.config)
}

func (a *jwtAuth) getUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			Audience:  "Academia",
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		IsStudent:    usr.IsStudent(),
		IsTeacher:    usr.IsTeacher(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

func (a *jwtAuth) authenticate(uname, pwd string) (*Claims, error) {
	usr, err := a.svc.GetByUsernameOrEmail(uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.IsActive {
		return nil, errAccountDeactivated
	}
	usr, err = a.svc.SetLastLogin(usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return a.getUserClaims(usr), nil
}

// generateToken generates a signed JWT token string representing the user Claims.
func (a *jwtAuth) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.config.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.config.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func (a *jwtAuth) getContextUser(ctx echo.Context, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := a.svc.GetByID(claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// authenticateSocket resolves the user of a websocket handshake. Browsers
// cannot set headers on websocket requests so the token rides the `token`
// query param; a Bearer header is honored for non-browser clients.
func (a *jwtAuth) authenticateSocket(ctx echo.Context) (user.User, error) {
	raw := ctx.QueryParam("token")
	if raw == "" {
		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if strings.HasPrefix(header, "Bearer ") {
			raw = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if raw == "" {
		return user.User{}, errUnauthorized
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != a.config.SigningMethod {
			return nil, errors.Errorf("unexpected signing method: %v", t.Method.Alg())
		}
		return a.config.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return user.User{}, errUnauthorized
	}

	usr, err := a.svc.GetByID(claims.Subject)
	if err != nil {
		return user.User{}, errUnauthorized
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	return usr, nil
}

func (a *jwtAuth) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := a.getContextUser(ctx, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := a.getUserClaims(usr, claims.OrigIssuedAt)
	token, err := a.generateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}

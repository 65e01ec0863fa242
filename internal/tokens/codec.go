package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/coursehub/internal/models"
)

// ErrInvalidToken is the only error Verify returns. Bad signatures, expiry
// and malformed input are deliberately indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid session token")

type SessionClaims struct {
	UserType    models.UserType `json:"user_type"`
	CurrentView models.UserType `json:"current_view,omitempty"`
	jwt.RegisteredClaims
}

type Claims struct {
	UserID      uint
	UserType    models.UserType
	CurrentView models.UserType
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(secret []byte, issuer string, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Codec{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

func (c *Codec) Mint(claims Claims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.now()
	exp := now.Add(ttl)
	sc := SessionClaims{
		UserType:    claims.UserType,
		CurrentView: claims.CurrentView,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(claims.UserID), 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sc).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	var sc SessionClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	tkn, err := jwt.ParseWithClaims(tokenStr, &sc, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseUint(sc.Subject, 10, 64)
	if err != nil || id == 0 {
		return nil, ErrInvalidToken
	}
	if !sc.UserType.Valid() {
		return nil, ErrInvalidToken
	}

	out := &Claims{
		UserID:      uint(id),
		UserType:    sc.UserType,
		CurrentView: sc.CurrentView,
		ExpiresAt:   sc.ExpiresAt.Time,
	}
	if sc.IssuedAt != nil {
		out.IssuedAt = sc.IssuedAt.Time
	}
	return out, nil
}

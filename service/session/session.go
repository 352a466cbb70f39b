package session

import (
	"context"
	"errors"
	"time"

	"aggregator/core"

	"github.com/bluele/gcache"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// New new session verifying HS256 access tokens signed with secret
func New(cfg core.SessionConfig) *Session {
	s := &Session{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		sf:     &singleflight.Group{},
	}

	if cfg.Capacity > 0 {
		s.tokens = gcache.New(cfg.Capacity).LRU().Build()
	}

	return s
}

// Session jwt session
type Session struct {
	key    []byte
	issuer string
	sf     *singleflight.Group
	tokens gcache.Cache
}

type cached struct {
	user    string
	expires time.Time
}

// Issue sign an access token for user, valid for ttl
func (s *Session) Issue(user string, ttl time.Duration) (string, error) {
	if user == "" {
		return "", errors.New("empty user")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s *Session) Login(ctx context.Context, accessToken string) (string, error) {
	if s.tokens != nil {
		if v, err := s.tokens.Get(accessToken); err == nil {
			if c := v.(cached); time.Now().Before(c.expires) {
				return c.user, nil
			}

			s.tokens.Remove(accessToken)
		}
	}

	v, err, _ := s.sf.Do(accessToken, func() (interface{}, error) {
		return s.parse(accessToken)
	})

	if err != nil {
		return "", err
	}

	c := v.(cached)
	if s.tokens != nil {
		_ = s.tokens.SetWithExpire(accessToken, c, time.Until(c.expires))
	}

	return c.user, nil
}

func (s *Session) parse(accessToken string) (cached, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		return s.key, nil
	}, opts...)

	if err != nil {
		return cached{}, err
	}

	if claims.Subject == "" {
		return cached{}, errors.New("token without subject")
	}

	return cached{user: claims.Subject, expires: claims.ExpiresAt.Time}, nil
}

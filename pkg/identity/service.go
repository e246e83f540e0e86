package identity

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/tsundokuapp/tsundoku/pkg/config"
	"github.com/tsundokuapp/tsundoku/pkg/models"
	"github.com/uptrace/bun"
)

// Claims are the token claims issued by the external identity provider. The
// subject is the opaque, stable user id; everything else is profile seed data.
type Claims struct {
	jwt.RegisteredClaims
	Email   string  `json:"email"`
	Name    *string `json:"name,omitempty"`
	Picture *string `json:"picture,omitempty"`
}

type Service struct {
	db     *bun.DB
	issuer string
	secret []byte
}

func NewService(db *bun.DB, cfg config.IdentityConfig) *Service {
	return &Service{
		db:     db,
		issuer: cfg.Issuer,
		secret: []byte(cfg.Secret),
	}
}

// VerifyToken validates a bearer token minted by the identity provider and
// returns its claims.
func (svc *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if svc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(svc.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return svc.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// EnsureProfile returns the local profile for the given claims, creating it on
// the user's first authenticated request.
func (svc *Service) EnsureProfile(ctx context.Context, claims *Claims) (*models.Profile, error) {
	profile := &models.Profile{}
	err := svc.db.
		NewSelect().
		Model(profile).
		Where("p.id = ?", claims.Subject).
		Scan(ctx)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	profile = &models.Profile{
		ID:        claims.Subject,
		CreatedAt: now,
		UpdatedAt: now,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}
	_, err = svc.db.
		NewInsert().
		Model(profile).
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return profile, nil
}

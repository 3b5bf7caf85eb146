package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"workclock/internal/platform/middleware"
	dErrors "workclock/pkg/domain-errors"
)

// Claims represents the JWT claims for employee access tokens.
type Claims struct {
	EmployeeID     string `json:"employee_id"`
	OrganisationID string `json:"organisation_id"`
	Admin          bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation. Session issuance itself lives
// outside this service; we only verify tokens minted by the identity layer.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateAccessToken mints an HS256 token. Used by tests and local tooling.
func (s *Service) GenerateAccessToken(employeeID, organisationID string, admin bool, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		EmployeeID:     employeeID,
		OrganisationID: organisationID,
		Admin:          admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken implements middleware.JWTValidator.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return &middleware.JWTClaims{
		EmployeeID:     claims.EmployeeID,
		OrganisationID: claims.OrganisationID,
		Admin:          claims.Admin,
	}, nil
}

package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken    = errors.New("invalid dialog token")
	ErrTokenGeneration = errors.New("failed to generate dialog token")
)

// Snapshot is what a create dialog is constructed from: the view's
// identity and peers at the moment the dialog opened
type Snapshot struct {
	DialogID string
	Identity string
	Peers    []string
}

// Claims represents the JWT claims structure of a dialog token
type Claims struct {
	jwt.RegisteredClaims
	Identity string   `json:"identity"`
	Peers    []string `json:"peers"`
}

// Service signs and verifies dialog tokens. A token travels with the
// rendered create dialog so that submitting it rebuilds the same dialog
// without any server-side session.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service with the given HMAC secret
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue signs a token for snap. An empty DialogID gets a fresh one.
func (s *Service) Issue(snap Snapshot) (string, error) {
	if snap.DialogID == "" {
		snap.DialogID = uuid.New().String()
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        snap.DialogID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Identity: snap.Identity,
		Peers:    snap.Peers,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", ErrTokenGeneration
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the snapshot the token
// was issued for
func (s *Service) Verify(tokenString string) (*Snapshot, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &Snapshot{
		DialogID: claims.ID,
		Identity: claims.Identity,
		Peers:    claims.Peers,
	}, nil
}

package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/golang-jwt/jwt/v5"

	"scratchcard/internal/models"
)

const identityTimeout = 5 * time.Second

type CustomClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Authentication turns a bearer credential into a user identity, either by
// checking an HS256 token locally or by asking the identity provider.
type Authentication struct {
	secret      string
	identityURL string
	client      *httpclient.Client
}

func NewAuthentication(secret string, identityURL string) (*Authentication, error) {
	if secret == "" && identityURL == "" {
		return nil, errors.New("authentication: either a jwt secret or an identity url is required")
	}

	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(identityTimeout),
		httpclient.WithRetryCount(2),
	)
	return &Authentication{secret, identityURL, client}, nil
}

func (authentication *Authentication) CreateToken(user *models.UserFromAuth, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(authentication.secret))
}

func (authentication *Authentication) Validate(token string) (*models.UserFromAuth, error) {
	if authentication.identityURL != "" {
		return authentication.introspect(token)
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		return []byte(authentication.secret), nil
	}
	jwtToken, err := jwt.ParseWithClaims(token, &CustomClaims{}, keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := jwtToken.Claims.(*CustomClaims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}

	return &models.UserFromAuth{
		ID:       claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}, nil
}

func (authentication *Authentication) introspect(token string) (*models.UserFromAuth, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	headers.Set("Accept", "application/json")

	res, err := authentication.client.Get(authentication.identityURL, headers)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider answered %d", res.StatusCode)
	}

	var user models.UserFromAuth
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("identity provider returned no user id")
	}
	return &user, nil
}

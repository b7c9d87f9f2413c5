package api

import (
	"context"
	"net/http"
	"strings"

	"stratolift/internal/models"
)

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges credentials for a token. Non-2xx responses are
// ErrAuthentication carrying the server message; a 2xx body without both
// token and user is ErrProtocol.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	err := c.send(ctx, request{
		method:     http.MethodPost,
		path:       "/auth/login",
		body:       map[string]string{"email": email, "password": password},
		rejectKind: ErrAuthentication,
		fallback:   "Login failed",
	}, &out)
	if err != nil {
		return LoginResponse{}, err
	}
	if out.Token == "" || out.User == nil {
		return LoginResponse{}, &Error{Kind: ErrProtocol, Status: http.StatusOK, Message: msgInvalidResponse}
	}
	return out, nil
}

type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Address         string `json:"address,omitempty"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

const minPasswordLen = 6

// Validate applies the registration form rules, first failure wins.
func (r RegisterRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.FirstName) == "":
		return ValidationError("First name is required")
	case strings.TrimSpace(r.LastName) == "":
		return ValidationError("Last name is required")
	case strings.TrimSpace(r.Email) == "":
		return ValidationError("Email is required")
	case strings.TrimSpace(r.Phone) == "":
		return ValidationError("Phone number is required")
	case r.Password == "":
		return ValidationError("Password is required")
	case r.Password != r.ConfirmPassword:
		return ValidationError("Passwords do not match")
	case len(r.Password) < minPasswordLen:
		return ValidationError("Password must be at least 6 characters")
	}
	return nil
}

// ValidateLogin applies the login form rules.
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return ValidationError("Email is required")
	}
	if password == "" {
		return ValidationError("Password is required")
	}
	return nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.send(ctx, request{
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     req,
		fallback: "Registration failed. Please try again.",
	}, nil)
}

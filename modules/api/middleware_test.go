package api

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effectiveone/facebook-clone-backend/modules/auth"
	"github.com/gofiber/fiber/v2"
)

// mockTokenValidator implements TokenValidator for testing
type mockTokenValidator struct {
	validateTokenFunc func(token string) (*auth.Claims, error)
}

func (m *mockTokenValidator) ValidateToken(token string) (*auth.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(token)
	}
	return nil, errors.New("not implemented")
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		validator      *mockTokenValidator
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "missing authorization header",
			authHeader:     "",
			validator:      &mockTokenValidator{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Authorization header is required"`,
		},
		{
			name:           "invalid authorization format - no bearer",
			authHeader:     "Basic token123",
			validator:      &mockTokenValidator{},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Invalid authorization header format`,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer invalid-token",
			validator: &mockTokenValidator{
				validateTokenFunc: func(token string) (*auth.Claims, error) {
					return nil, auth.ErrInvalidToken
				},
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Invalid or expired token"`,
		},
		{
			name:       "expired token",
			authHeader: "Bearer expired-token",
			validator: &mockTokenValidator{
				validateTokenFunc: func(token string) (*auth.Claims, error) {
					return nil, auth.ErrExpiredToken
				},
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"Invalid or expired token"`,
		},
		{
			name:       "valid token",
			authHeader: "Bearer valid-token",
			validator: &mockTokenValidator{
				validateTokenFunc: func(token string) (*auth.Claims, error) {
					return &auth.Claims{UserID: "user-123", Email: "test@example.com"}, nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"user-123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(AuthMiddleware(tt.validator))
			app.Get("/test", func(c *fiber.Ctx) error {
				userID, ok := currentUserID(c)
				if !ok {
					return c.SendStatus(fiber.StatusInternalServerError)
				}
				return c.JSON(fiber.Map{"userId": userID})
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %v, want %v", resp.StatusCode, tt.expectedStatus)
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("io.ReadAll() error = %v", err)
			}
			if !strings.Contains(string(body), tt.expectedBody) {
				t.Errorf("body = %v, want to contain %v", string(body), tt.expectedBody)
			}
		})
	}
}

func TestAuthMiddleware_RealTokens(t *testing.T) {
	tokens := auth.NewJWTManager(auth.Config{SecretKey: "api-test-secret", Issuer: "api-test"})
	token, err := tokens.GenerateToken("user-456", "context@example.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	var captured *auth.Claims
	app := fiber.New()
	app.Use(AuthMiddleware(tokens))
	app.Get("/test", func(c *fiber.Ctx) error {
		captured, _ = c.Locals(UserContextKey).(*auth.Claims)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusOK)
	}
	if captured == nil {
		t.Fatal("claims not set in context")
	}
	if captured.UserID != "user-456" {
		t.Errorf("claims.UserID = %v, want %v", captured.UserID, "user-456")
	}
}

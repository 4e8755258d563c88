package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWrapStoreError(t *testing.T) {
	if err := WrapStoreError("get ride", "ride", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	notFound := WrapStoreError("get ride", "ride", fmt.Errorf("failed to get ride: %w", ErrDocumentNotFound))
	if !IsNotFoundError(notFound) {
		t.Fatalf("expected not found error, got %T", notFound)
	}
	if notFound.Error() != "ride not found" {
		t.Errorf("unexpected message %q", notFound.Error())
	}

	cause := errors.New("connection refused")
	dbErr := WrapStoreError("get ride", "ride", cause)
	if !IsDatabaseError(dbErr) {
		t.Fatalf("expected database error, got %T", dbErr)
	}
	if !errors.Is(dbErr, cause) {
		t.Errorf("database error should unwrap to its cause")
	}
}

func TestHandleServiceErrorStatusCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("driver_user_id", "is required"), http.StatusBadRequest},
		{"business", NewBusinessError("cannot cancel a completed ride"), http.StatusBadRequest},
		{"not_found", NewNotFoundError("ride"), http.StatusNotFound},
		{"database", &DatabaseError{Op: "accept ride", Err: errors.New("timeout")}, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			HandleServiceError(c, tc.err)

			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}

			var body APIResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != StatusError || body.Error == nil {
				t.Fatalf("expected error envelope, got %+v", body)
			}
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := primitive.NewObjectID()
	token, err := GenerateAccessToken(userID, "driver", "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID.Hex() || claims.UserType != "driver" {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Errorf("expected signature mismatch to fail")
	}
}

func TestValidateTokenRejectsExpiredAndUnsigned(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		UserID:   primitive.NewObjectID().Hex(),
		UserType: "rider",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ValidateToken(signed, "secret"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		UserID:   primitive.NewObjectID().Hex(),
		UserType: "rider",
	})
	signed, err = noExpiry.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ValidateToken(signed, "secret"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for token without exp, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{UserID: "x", UserType: "admin"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ValidateToken(unsigned, "secret"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected alg none to be rejected, got %v", err)
	}
}

func TestResponsesCarryRequestIDAndFieldDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(ContextRequestID, "req-42")

	HandleServiceError(c, NewValidationError("driver_user_id", "is required"))

	var body APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RequestID != "req-42" {
		t.Errorf("expected request id, got %q", body.RequestID)
	}
	if body.Error == nil || body.Error.Details["driver_user_id"] != "is required" {
		t.Errorf("expected field details, got %+v", body.Error)
	}
}

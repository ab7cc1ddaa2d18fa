package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"atqr-backend-go/internal/core"
	"atqr-backend-go/internal/models"
)

type stubQRCodes struct {
	result *core.CreateQRCodeResult
	err    error
}

func (s *stubQRCodes) Create(_ context.Context, _ string, _ models.CreateQRCodeRequest) (*core.CreateQRCodeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func qrRouter(qrs core.QRCodeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewQRCodeHandler(qrs, zap.NewNop())
	router.POST("/qrcodes", func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	}, handler.CreateQRCode)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validCreateBody = `{
	"qrId": "qr-1",
	"name": "my code",
	"type": "dynamic",
	"content": {"type": "url", "url": "https://example.com/page"}
}`

func TestCreateQRCodeEndpoint(t *testing.T) {
	router := qrRouter(&stubQRCodes{result: &core.CreateQRCodeResult{QRID: "qr-1", Slug: "abcd1234"}})
	rec := postJSON(router, "/qrcodes", validCreateBody)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"qrId":"qr-1","slug":"abcd1234"}`, rec.Body.String())
}

func TestCreateQRCodeBindingErrors(t *testing.T) {
	router := qrRouter(&stubQRCodes{result: &core.CreateQRCodeResult{QRID: "qr-1"}})

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not-json"},
		{"missing qrId", `{"name":"x","type":"static","content":{"type":"url","url":"https://e.com"}}`},
		{"bad type", `{"qrId":"qr-1","name":"x","type":"weekly","content":{"type":"url","url":"https://e.com"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(router, "/qrcodes", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateQRCodeErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"quota exhausted", fmt.Errorf("%w: limit reached (10)", core.ErrResourceExhausted), http.StatusTooManyRequests},
		{"tier gated", fmt.Errorf("%w: dynamic qr codes require an active subscription", core.ErrPermissionDenied), http.StatusForbidden},
		{"duplicate id", fmt.Errorf("%w: qr-1", core.ErrAlreadyExists), http.StatusConflict},
		{"unknown user", fmt.Errorf("%w: user with ID 'u1'", core.ErrUserNotFound), http.StatusNotFound},
		{"backend failure", fmt.Errorf("store unavailable"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(qrRouter(&stubQRCodes{err: tt.err}), "/qrcodes", validCreateBody)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

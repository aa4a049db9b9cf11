package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	apperrors "mindtrack/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testUserID = "9f3c1f9e-2b1a-4c36-9d3e-1f0d8f6b2a11"

type fakeGoTrue struct {
	mu          sync.Mutex
	otpStatus   int
	otpBody     string
	redirectTo  string
	otpEmail    string
	userStatus  int
	bearer      string
	loggedOut   bool
	refreshWith string
}

func (f *fakeGoTrue) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/otp", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.redirectTo = r.URL.Query().Get("redirect_to")
		var body struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.otpEmail = body.Email
		if f.otpStatus != 0 {
			w.WriteHeader(f.otpStatus)
			_, _ = w.Write([]byte(f.otpBody))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.bearer = r.Header.Get("Authorization")
		if f.userStatus != 0 {
			w.WriteHeader(f.userStatus)
			_, _ = w.Write([]byte(`{"code":401,"error_code":"bad_jwt","msg":"invalid JWT"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + testUserID + `","email":"a@b.co","aud":"authenticated"}`))
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.refreshWith = body.RefreshToken
		f.mu.Unlock()
		if body.RefreshToken != "good-refresh" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token: Refresh Token Not Found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"bearer","expires_in":3600,"expires_at":1893456000,"user":{"id":"` + testUserID + `","email":"a@b.co"}}`))
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.loggedOut = true
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestProvider(t *testing.T, fake *fakeGoTrue, logger *zap.Logger) *Provider {
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	return NewProvider(NewAuthClient(server.URL, "anon-key"), 2*time.Second, logger)
}

func TestSendMagicLink_AddsRedirect(t *testing.T) {
	fake := &fakeGoTrue{}
	p := newTestProvider(t, fake, zap.NewNop())

	err := p.SendMagicLink(context.Background(), "a@b.co", "http://localhost:8080/auth/callback")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", fake.otpEmail)
	assert.Equal(t, "http://localhost:8080/auth/callback", fake.redirectTo)
}

func TestSendMagicLink_RateLimitClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantLegacy bool
	}{
		{
			name:   "status 429",
			status: http.StatusTooManyRequests,
			body:   `{"code":429,"error_code":"over_email_send_rate_limit","msg":"email rate limit exceeded"}`,
		},
		{
			name:   "error code without 429",
			status: http.StatusBadRequest,
			body:   `{"error_code":"over_email_send_rate_limit","msg":"email rate limit exceeded"}`,
		},
		{
			name:       "legacy message text",
			status:     http.StatusBadRequest,
			body:       `{"code":400,"msg":"For security purposes, you can only request this after 42 seconds."}`,
			wantLegacy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			fake := &fakeGoTrue{otpStatus: tt.status, otpBody: tt.body}
			p := newTestProvider(t, fake, zap.New(core))

			err := p.SendMagicLink(context.Background(), "a@b.co", "")
			require.Error(t, err)
			assert.True(t, apperrors.IsAuth(err))
			assert.True(t, apperrors.HasCode(err, apperrors.CodeRateLimited))

			legacyLogs := logs.FilterMessage("Rate limit recognised by legacy message text").Len()
			if tt.wantLegacy {
				assert.Equal(t, 1, legacyLogs)
			} else {
				assert.Zero(t, legacyLogs)
			}
		})
	}
}

func TestSendMagicLink_OtherRejection(t *testing.T) {
	fake := &fakeGoTrue{
		otpStatus: http.StatusUnprocessableEntity,
		otpBody:   `{"code":422,"error_code":"validation_failed","msg":"Unable to validate email address: invalid format"}`,
	}
	p := newTestProvider(t, fake, zap.NewNop())

	err := p.SendMagicLink(context.Background(), "nope", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
	assert.False(t, apperrors.HasCode(err, apperrors.CodeRateLimited))
	assert.Equal(t, "Unable to validate email address: invalid format", apperrors.PublicMessage(err))
}

func TestSessionFromTokens(t *testing.T) {
	fake := &fakeGoTrue{}
	p := newTestProvider(t, fake, zap.NewNop())

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   testUserID,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	session, err := p.SessionFromTokens(context.Background(), access, "refresh")
	require.NoError(t, err)
	assert.Equal(t, testUserID, session.User.ID)
	assert.Equal(t, "a@b.co", session.User.Email)
	assert.Equal(t, "refresh", session.RefreshToken)
	assert.True(t, exp.Equal(session.ExpiresAt))
	assert.Equal(t, "Bearer "+access, fake.bearer)
}

func TestSessionFromTokens_Rejected(t *testing.T) {
	fake := &fakeGoTrue{userStatus: http.StatusUnauthorized}
	p := newTestProvider(t, fake, zap.NewNop())

	_, err := p.SessionFromTokens(context.Background(), "bad", "refresh")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
	assert.Equal(t, "invalid JWT", apperrors.PublicMessage(err))
}

func TestRefresh(t *testing.T) {
	fake := &fakeGoTrue{}
	p := newTestProvider(t, fake, zap.NewNop())

	session, err := p.Refresh(context.Background(), "good-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", session.AccessToken)
	assert.Equal(t, "new-refresh", session.RefreshToken)
	assert.Equal(t, int64(1893456000), session.ExpiresAt.Unix())

	_, err = p.Refresh(context.Background(), "stale")
	require.Error(t, err)
	assert.Contains(t, apperrors.PublicMessage(err), "Invalid Refresh Token")
}

func TestSignOut(t *testing.T) {
	fake := &fakeGoTrue{}
	p := newTestProvider(t, fake, zap.NewNop())

	require.NoError(t, p.SignOut(context.Background(), "access"))
	assert.True(t, fake.loggedOut)
}

func TestCanceledContextIsTimeout(t *testing.T) {
	p := newTestProvider(t, &fakeGoTrue{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.SendMagicLink(ctx, "a@b.co", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseProviderError(t *testing.T) {
	pe, ok := parseProviderError(errors.New(`response status code 400: {"error":"invalid_grant","error_description":"bad"}`))
	require.True(t, ok)
	assert.Equal(t, 400, pe.Status)
	assert.Equal(t, "bad", pe.Message)

	pe, ok = parseProviderError(errors.New("response status code 503"))
	require.True(t, ok)
	assert.Equal(t, "Service Unavailable", pe.Message)

	_, ok = parseProviderError(errors.New("dial tcp: connection refused"))
	assert.False(t, ok)
}

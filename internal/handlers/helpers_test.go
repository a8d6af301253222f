package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chachabrian/railparcel-backend/internal/config"
	"github.com/chachabrian/railparcel-backend/internal/database"
	"github.com/chachabrian/railparcel-backend/internal/middleware"
	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/internal/services"
	"github.com/chachabrian/railparcel-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testOTP = "482913"

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	textBytes = []byte("just some notes about the parcel")
)

type sentMail struct {
	to, subject, text string
}

type recordingChannel struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingChannel) Name() string { return "recording" }

func (r *recordingChannel) Send(ctx context.Context, to, subject, text, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{to: to, subject: subject, text: text})
	return nil
}

func (r *recordingChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// testAPI is the full router over a seeded in-memory database.
type testAPI struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	tokens *utils.TokenIssuer
	mail   *recordingChannel
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	storage, err := services.NewLocalStorage(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	return newTestAPIWithStorage(t, storage)
}

func newTestAPIWithStorage(t *testing.T, storage services.Storage) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	_, err = database.Seed(db)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := services.NewHub()
	go hub.Run(ctx)

	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	mail := &recordingChannel{}
	auth := services.NewAuthService(db, tokens,
		services.NewDeliveryChain(time.Second, mail),
		config.OTPConfig{PhoneRegion: "US"},
		services.WithCodeGenerator(func(int) (string, error) { return testOTP, nil }),
	)
	notifier := services.MultiNotifier{hub}

	r := gin.New()
	r.Use(middleware.RequestID())
	RegisterRoutes(r, Deps{
		DB:          db,
		AuthHeader:  "x-auth-token",
		PhoneRegion: "US",
		Auth:        auth,
		Parcels:     services.NewParcelService(db, storage, notifier),
		Messages:    services.NewMessageService(db, notifier),
		Stations:    services.NewStationService(db, "US"),
		Hub:         hub,
	})

	return &testAPI{t: t, db: db, router: r, tokens: tokens, mail: mail}
}

// tokenFor signs a session for a seeded user without going through OTP.
func (a *testAPI) tokenFor(email string) string {
	a.t.Helper()
	var u models.User
	require.NoError(a.t, a.db.Where("email = ?", email).First(&u).Error)
	token, _, err := a.tokens.Issue(u.ID, u.Name, string(u.Role), u.StationID)
	require.NoError(a.t, err)
	return token
}

func (a *testAPI) station(code string) models.Station {
	a.t.Helper()
	var st models.Station
	require.NoError(a.t, a.db.Where("code = ?", code).First(&st).Error)
	return st
}

func (a *testAPI) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) upload(path, token string, fields map[string]string, file []byte, filename string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(a.t, err)
		_, err = fw.Write(file)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// unavailableStorage fails every upload.
type unavailableStorage struct{}

func (unavailableStorage) Store(ctx context.Context, data []byte, name string) (string, error) {
	return "", errors.New("bucket unreachable")
}

func (unavailableStorage) Delete(ctx context.Context, url string) error { return nil }

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

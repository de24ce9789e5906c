package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarease/images/internal/config"
	"github.com/librarease/images/internal/filestorage"
	"github.com/librarease/images/internal/usecase"
)

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(_ context.Context, token string) (string, error) {
	if uid, ok := f[token]; ok {
		return uid, nil
	}
	return "", errors.New("invalid token")
}

func newTestServer(t *testing.T, deleteAuth string) (http.Handler, string) {
	t.Helper()
	root := t.TempDir()
	store, err := filestorage.NewLocalStorage(root)
	require.NoError(t, err)

	uc := usecase.New(store, store, usecase.Options{
		Policy:      usecase.DefaultPolicy,
		Quality:     usecase.DefaultQuality,
		RetireKinds: usecase.OwnerKinds,
	})
	cfg := config.Config{
		MaxUploadBytes: usecase.DefaultPolicy.MaxBytes,
		ClientID:       "internal-service",
		DeleteAuth:     deleteAuth,
	}
	s := NewServer(uc, fakeVerifier{"good-token": "user-1"}, cfg, nil)
	return s.RegisterRoutes(), root
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 24, 16))
	for i := 0; i < 24; i++ {
		img.SetNRGBA(i, i%16, color.NRGBA{R: 255, A: uint8(i * 10)})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func upload(t *testing.T, h http.Handler, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func do(h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestImageLifecycle(t *testing.T) {
	h, root := newTestServer(t, config.DELETE_AUTH_REQUIRED)

	rec := upload(t, h, "/upload/company/co1", "logo.png", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var img Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))
	assert.Equal(t, "/images/company/co1/"+img.FileName, img.ImageURL)
	assert.Equal(t, "image/jpeg", img.MimeType)
	assert.Positive(t, img.FileSize)

	rec = do(h, http.MethodGet, img.ImageURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
	assert.EqualValues(t, img.FileSize, rec.Body.Len())

	rec = do(h, http.MethodDelete, img.ImageURL, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodDelete, img.ImageURL, map[string]string{"Authorization": "Bearer forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodDelete, img.ImageURL, map[string]string{
		config.HEADER_KEY_X_CLIENT_ID: "internal-service",
		config.HEADER_KEY_X_UID:       "svc",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res Res
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "Image deleted successfully and directory removed", res.Message)
	assert.NoDirExists(t, filepath.Join(root, "co1"))

	rec = do(h, http.MethodGet, img.ImageURL, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodDelete, img.ImageURL, map[string]string{"Authorization": "Bearer good-token"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadErrors(t *testing.T) {
	h, _ := newTestServer(t, config.DELETE_AUTH_REQUIRED)

	rec := upload(t, h, "/upload/candidate/c1", "cv.png", []byte("this is a text file"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid image file")

	rec = upload(t, h, "/upload/candidate/c1", "cv.pdf", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file type not allowed")

	rec = upload(t, h, "/upload/admin/c1", "logo.png", pngBytes(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, ct := multipartBody(t, "other", "logo.png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/upload/job/u1", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	h, _ := newTestServer(t, config.DELETE_AUTH_REQUIRED)

	big := append(pngBytes(t), make([]byte, 6<<20)...)
	rec := upload(t, h, "/upload/employer/e1", "big.jpg", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file size too large")
}

func TestDeleteWithOptionalAuth(t *testing.T) {
	h, _ := newTestServer(t, config.DELETE_AUTH_OPTIONAL)

	rec := upload(t, h, "/upload/job/u7", "banner.png", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var img Image
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &img))

	rec = do(h, http.MethodDelete, img.ImageURL, map[string]string{"Authorization": "Bearer forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodDelete, img.ImageURL, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h, _ := newTestServer(t, config.DELETE_AUTH_REQUIRED)

	rec := do(h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)
}

package photos

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newPhotoServer(t *testing.T) *httptest.Server {
	t.Helper()
	photo := pngBytes(t, 4, 3)

	r := mux.NewRouter()
	r.HandleFunc("/rest/photos/view/{name}", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch mux.Vars(req)["name"] {
		case "ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(photo)
		case "text.png":
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, req)
		}
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPLoaderDecodesImage(t *testing.T) {
	srv := newPhotoServer(t)
	loader, err := NewHTTPLoader(srv.Client(), srv.URL, "secret")
	require.NoError(t, err)

	img, err := loader.Load(context.Background(), srv.URL+"/rest/photos/view/ok.png?cb=1-1")
	require.NoError(t, err)
	require.Equal(t, "png", img.Format)
	require.Equal(t, 4, img.Width)
	require.Equal(t, 3, img.Height)
	require.NotEmpty(t, img.Data)
}

func TestHTTPLoaderResolvesRelativeURLs(t *testing.T) {
	srv := newPhotoServer(t)
	loader, err := NewHTTPLoader(srv.Client(), srv.URL, "secret")
	require.NoError(t, err)

	img, err := loader.Load(context.Background(), "/rest/photos/view/ok.png")
	require.NoError(t, err)
	require.Equal(t, "png", img.Format)
}

func TestHTTPLoaderErrors(t *testing.T) {
	srv := newPhotoServer(t)

	loader, err := NewHTTPLoader(srv.Client(), srv.URL, "secret")
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), "/rest/photos/view/missing.png")
	require.ErrorContains(t, err, "404")

	_, err = loader.Load(context.Background(), "/rest/photos/view/text.png")
	require.ErrorContains(t, err, "not an image")

	anonymous, err := NewHTTPLoader(srv.Client(), srv.URL, "")
	require.NoError(t, err)
	_, err = anonymous.Load(context.Background(), "/rest/photos/view/ok.png")
	require.ErrorContains(t, err, "401")
}

func TestSchedulerWithHTTPLoader(t *testing.T) {
	srv := newPhotoServer(t)
	loader, err := NewHTTPLoader(srv.Client(), srv.URL, "secret")
	require.NoError(t, err)
	s := newTestScheduler(loader, testPolicy(), &sleepRecorder{})

	good := NewRef("/rest/photos/view/ok.png", nil)
	bad := NewRef("/rest/photos/view/missing.png", nil)
	s.Enqueue(good, bad)
	s.RunQueue()
	waitIdle(t, s)

	require.Equal(t, Loaded, good.State())
	require.Equal(t, 4, good.Snapshot().Image.Width)
	require.Equal(t, "/rest/photos/view/ok.png", good.Snapshot().Image.URL)
	require.Equal(t, Failed, bad.State())
	require.Equal(t, 3, bad.Snapshot().Attempts)
}

func TestHTTPLoaderKeepsTokenOnBackendOrigin(t *testing.T) {
	srv := newPhotoServer(t)
	photo := pngBytes(t, 2, 2)

	storageAuth := make(chan string, 4)
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		storageAuth <- req.Header.Get("Authorization")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(photo)
	}))
	t.Cleanup(storage.Close)

	loader, err := NewHTTPLoader(srv.Client(), srv.URL, "secret")
	require.NoError(t, err)

	img, err := loader.Load(context.Background(), storage.URL+"/bucket/p.png?cb=1-1")
	require.NoError(t, err)
	require.Equal(t, 2, img.Width)
	require.Len(t, storageAuth, 1)
	require.Empty(t, <-storageAuth)

	_, err = loader.Load(context.Background(), srv.URL+"/rest/photos/view/ok.png")
	require.NoError(t, err)
}

package supabase

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_Upload(t *testing.T) {
	var (
		gotPath string
		gotType string
		gotBody string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"Key":"listing-images/x"}`)
	})

	objectPath, err := c.Storage().Upload(context.Background(), "listing-images", "my sofa.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(objectPath, "-my_sofa.jpg"), objectPath)
	assert.Len(t, objectPath, 36+len("-my_sofa.jpg"))
	assert.Equal(t, "/storage/v1/object/listing-images/"+objectPath, gotPath)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, "jpeg-bytes", gotBody)
}

func TestStorage_UploadError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"statusCode":"403","error":"Unauthorized","message":"new row violates row-level security policy"}`)
	})

	_, err := c.Storage().Upload(context.Background(), "avatars", "me.png", "", strings.NewReader("png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row-level security")
}

func TestStorage_BreakerIgnoresRejectedUploads(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusForbidden)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = io.WriteString(w, `{"statusCode":"403","error":"Unauthorized","message":"new row violates row-level security policy"}`)
	})
	upload := func() error {
		_, err := c.Storage().Upload(context.Background(), "avatars", "me.png", "image/png", strings.NewReader("png"))
		return err
	}

	for i := 0; i < 8; i++ {
		require.Error(t, upload())
	}
	assert.False(t, c.Storage().breaker.IsOpen(), "client errors do not trip the storage breaker")

	status.Store(http.StatusBadGateway)
	for i := 0; i < 8; i++ {
		_ = upload()
	}
	assert.True(t, c.Storage().breaker.IsOpen())
}

func TestStorage_UploadRequiresBucket(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.Storage().Upload(context.Background(), "", "a.png", "", strings.NewReader(""))
	assert.Error(t, err)
}

func TestStorage_PublicURL(t *testing.T) {
	c, err := New(Config{URL: "https://abc.supabase.co", AnonKey: "k"})
	require.NoError(t, err)

	assert.Equal(t,
		"https://abc.supabase.co/storage/v1/object/public/avatars/u1.png",
		c.Storage().PublicURL("avatars", "u1.png"))
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":            "photo.jpg",
		"../../etc/passwd":     "passwd",
		`C:\Users\ana\cat.png`: "cat.png",
		"garage sale (1).png":  "garage_sale__1_.png",
		"":                     "file",
		"/":                    "file",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanName(in), in)
	}
}

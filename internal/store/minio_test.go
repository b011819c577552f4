package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinioStore_URLRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		store   *MinioStore
		key     string
		wantURL string
	}{
		{
			name:    "served by backend",
			store:   &MinioStore{bucket: "nimi-blog"},
			key:     "avatars/abc/1.png",
			wantURL: "/media/avatars/abc/1.png",
		},
		{
			name:    "public endpoint",
			store:   &MinioStore{bucket: "nimi-blog", publicURL: "https://cdn.example.com"},
			key:     "avatars/abc/1.png",
			wantURL: "https://cdn.example.com/nimi-blog/avatars/abc/1.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := tt.store.URL(tt.key)
			assert.Equal(t, tt.wantURL, url)

			key, ok := tt.store.KeyFromURL(url)
			assert.True(t, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestMinioStore_KeyFromForeignURL(t *testing.T) {
	s := &MinioStore{bucket: "nimi-blog"}
	_, ok := s.KeyFromURL("https://img.freepik.com/avatar.jpg")
	assert.False(t, ok)
}

package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarContentType(t *testing.T) {
	cases := []struct {
		contentType, filename, want string
		ok                          bool
	}{
		{"image/png", "me.png", "image/png", true},
		{"IMAGE/JPEG; charset=binary", "", "image/jpeg", true},
		{"application/octet-stream", "me.webp", "image/webp", true},
		{"", "ME.JPEG", "image/jpeg", true},
		{"video/mp4", "clip.mp4", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		got, err := AvatarContentType(tc.contentType, tc.filename)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrUnsupportedType, tc)
			continue
		}
		require.NoError(t, err, tc)
		assert.Equal(t, tc.want, got)
	}
}

func TestAvatarKey(t *testing.T) {
	id := uuid.New()
	k1 := AvatarKey(id, "image/png")
	k2 := AvatarKey(id, "image/png")
	assert.True(t, strings.HasPrefix(k1, "avatars/"+id.String()+"/"))
	assert.True(t, strings.HasSuffix(k1, ".png"))
	assert.NotEqual(t, k1, k2)
}

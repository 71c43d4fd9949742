package templates

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_DirOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "emails"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "emails", "email-footer.html"), []byte("<p>custom footer</p>"), 0o600))

	s, err := NewStack(context.Background(), Config{Dir: dir}, nil)
	require.NoError(t, err)
	defer s.Close()
	s.Registry.Register("emails", "emails")

	out, err := s.Registry.Render(context.Background(), "emails", "email-footer", nil)
	require.NoError(t, err)
	assert.Equal(t, "<p>custom footer</p>", out)

	out, err = s.Registry.Render(context.Background(), "emails", "email-styles.css", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "#wrapper")

	assert.Nil(t, s.Storage)
	assert.Nil(t, s.Cache)
}

func TestStack_BucketOverrides(t *testing.T) {
	st := &memStorage{objects: map[string][]byte{"v1/emails/email-footer.html": []byte("bucket footer")}}
	store := newMemStore()

	s, err := NewStack(context.Background(), Config{Bucket: "tpl", Prefix: "v1"}, &StackOptions{Storage: st, Store: store})
	require.NoError(t, err)
	s.Registry.Register("emails", "emails")

	out, err := s.Registry.Render(context.Background(), "emails", "email-footer", nil)
	require.NoError(t, err)
	assert.Equal(t, "bucket footer", out)
	assert.Contains(t, store.data, "emails:tpl:emails/email-footer.html")

	st.objects["v1/emails/email-footer.html"] = []byte("new footer")
	require.NoError(t, s.Cache.Invalidate(context.Background(), "emails/email-footer.html"))

	out, err = s.Registry.Render(context.Background(), "emails", "email-footer", nil)
	require.NoError(t, err)
	assert.Equal(t, "new footer", out)

	// injected backends are owned by the caller
	require.NoError(t, s.Close())
}

package app

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func images(ids ...string) []GeneratedImage {
	out := make([]GeneratedImage, 0, len(ids))
	for _, id := range ids {
		out = append(out, GeneratedImage{ID: id, URL: "data:image/png;base64,AA==", Prompt: "p " + id, Alt: "a", Name: "n" + id})
	}
	return out
}

func ids(images []GeneratedImage) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.ID)
	}
	return out
}

func TestPrepend(t *testing.T) {
	in := images("b", "c")
	out := Prepend(in, GeneratedImage{ID: "a"})

	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
	assert.Equal(t, []string{"b", "c"}, ids(in))
}

func TestReplaceOrPrepend(t *testing.T) {
	in := images("a", "b", "c")

	replaced := ReplaceOrPrepend(in, "b", GeneratedImage{ID: "b", URL: "data:new"})
	assert.Equal(t, []string{"a", "b", "c"}, ids(replaced))
	assert.Equal(t, "data:new", replaced[1].URL)
	assert.NotEqual(t, "data:new", in[1].URL)

	prepended := ReplaceOrPrepend(in, "zz", GeneratedImage{ID: "zz"})
	assert.Equal(t, []string{"zz", "a", "b", "c"}, ids(prepended))
}

func TestRemoveByID(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, ids(RemoveByID(images("a", "b", "c"), "b")))
	assert.Equal(t, []string{"a"}, ids(RemoveByID(images("a"), "missing")))
}

func TestRenameByID(t *testing.T) {
	in := images("a", "b")

	out, ok := RenameByID(in, "b", "sunset")
	require.True(t, ok)
	assert.Equal(t, "sunset", out[1].Name)
	assert.Equal(t, "nb", in[1].Name)
	assert.Equal(t, ids(in), ids(out))

	_, ok = RenameByID(in, "missing", "x")
	assert.False(t, ok)
}

func TestRenameToSameNameKeepsIdentity(t *testing.T) {
	in := images("a", "b", "c")
	out, ok := RenameByID(in, "b", in[1].Name)

	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestTruncate(t *testing.T) {
	var list []string
	for i := 0; i < 15; i++ {
		list = append(list, fmt.Sprint(i))
	}
	out := Truncate(images(list...), 10)

	require.Len(t, out, 10)
	assert.Equal(t, "0", out[0].ID)
	assert.Equal(t, "9", out[9].ID)
	assert.Len(t, Truncate(images("a"), 10), 1)
}

func TestFindByID(t *testing.T) {
	img, ok := FindByID(images("a", "b"), "b")
	require.True(t, ok)
	assert.Equal(t, "b", img.ID)

	_, ok = FindByID(nil, "b")
	assert.False(t, ok)
}

func TestNewImageID(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	assert.Equal(t, "1700000000123-a_red_fox_", NewImageID(now, "a red fox in snow"))
	assert.Equal(t, "1700000000123-cat", NewImageID(now, "cat"))
	assert.Equal(t, NewImageID(now, "same"), NewImageID(now, "same"), "ids collide within one millisecond")
}

func TestAIHint(t *testing.T) {
	assert.Equal(t, "a red", AIHint("a red fox in snow"))
	assert.Equal(t, "fox", AIHint("fox"))
	assert.Equal(t, "", AIHint(""))
}

func TestInvalidImageURL(t *testing.T) {
	u := InvalidImageURL("12 ab&c")
	assert.True(t, strings.HasPrefix(u, "https://placehold.co/512x512.png?text=Invalid+Image&seed="))
	assert.True(t, strings.HasSuffix(u, "12+ab%26c"))
}

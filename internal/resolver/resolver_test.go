package resolver

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	known := uuid.New()
	lookup := func(ctx context.Context, class, id string) (uuid.UUID, bool) {
		if class == "record" && id == known.String() {
			return known, true
		}
		return uuid.Nil, false
	}

	res := New(Config{
		Origin: "http://localhost",
		Routes: []Route{
			{Pattern: "/records/{id}", Class: "record"},
			{Pattern: "/static/about", Class: "page"},
		},
	}, lookup)

	ctx := context.Background()

	t.Run("local reference resolves", func(t *testing.T) {
		got := res.Resolve(ctx, "http://localhost/records/"+known.String())
		if assert.NotNil(t, got) {
			assert.Equal(t, known, *got)
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		assert.Nil(t, res.Resolve(ctx, "http://localhost/records/"+uuid.New().String()))
	})

	t.Run("foreign host", func(t *testing.T) {
		assert.Nil(t, res.Resolve(ctx, "http://otherhost/records/"+known.String()))
	})

	t.Run("scheme mismatch", func(t *testing.T) {
		assert.Nil(t, res.Resolve(ctx, "https://localhost/records/"+known.String()))
	})

	t.Run("malformed uri", func(t *testing.T) {
		assert.Nil(t, res.Resolve(ctx, "hhtp//localhost/records/1"))
		assert.Nil(t, res.Resolve(ctx, "://bad"))
	})

	t.Run("unrouted path", func(t *testing.T) {
		assert.Nil(t, res.Resolve(ctx, "http://localhost/files/"+known.String()))
	})

	t.Run("route without identifier never resolves", func(t *testing.T) {
		assert.Nil(t, res.Resolve(ctx, "http://localhost/static/about"))
	})
}

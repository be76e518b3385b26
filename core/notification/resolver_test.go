package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverRegistry(t *testing.T) {
	reg := NewResolverRegistry()

	type assignment struct{ ID, Title string }
	store := map[string]assignment{"a1": {ID: "a1", Title: "Essay"}}
	reg.Register("assignment", func(id string) (interface{}, bool) {
		a, ok := store[id]
		return a, ok
	})

	t.Run("known kind", func(t *testing.T) {
		obj, ok := reg.Resolve(&RelatedObject{Kind: "assignment", ID: "a1"})
		assert.True(t, ok)
		assert.Equal(t, assignment{ID: "a1", Title: "Essay"}, obj)
	})

	t.Run("deleted target", func(t *testing.T) {
		_, ok := reg.Resolve(&RelatedObject{Kind: "assignment", ID: "gone"})
		assert.False(t, ok)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, ok := reg.Resolve(&RelatedObject{Kind: "exam", ID: "e1"})
		assert.False(t, ok)
	})

	t.Run("nil ref", func(t *testing.T) {
		_, ok := reg.Resolve(nil)
		assert.False(t, ok)
	})
}

func TestNotification_Related(t *testing.T) {
	n := Notification{ObjectKind: "assignment", ObjectID: "a1"}
	assert.Equal(t, &RelatedObject{Kind: "assignment", ID: "a1"}, n.Related())

	assert.Nil(t, Notification{}.Related())
	assert.Nil(t, Notification{ObjectKind: "assignment"}.Related())
}

package automerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/errors"
)

func TestDocumentIDs(t *testing.T) {
	id := NewDocumentID()
	got, err := ParseURL(crdt.URLPrefix + id)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = ParseURL("abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	for _, bad := range []string{"", "automerge:", "not a doc", "automerge:0OIl"} {
		_, err := ParseURL(bad)
		assert.True(t, errors.IsInvalidDocument(err), bad)
	}
}

func TestFindReturnsSameHandle(t *testing.T) {
	repo, err := NewRepo(nil)
	require.NoError(t, err)
	defer repo.Close()

	a, err := repo.Find("automerge:abc123")
	require.NoError(t, err)
	b, err := repo.Find("abc123")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "abc123", a.DocumentID())

	_, err = repo.Find("automerge:not valid")
	assert.True(t, errors.IsInvalidDocument(err))
}

func TestHandleChangeAndView(t *testing.T) {
	repo, err := NewRepo(nil)
	require.NoError(t, err)
	defer repo.Close()
	h, err := repo.Create()
	require.NoError(t, err)

	notified := 0
	unsubscribe := h.OnChange(func() { notified++ })

	v, ok := h.View()
	require.True(t, ok)
	assert.Nil(t, v.List(crdt.CommentsKey))

	require.NoError(t, h.Change(func(d crdt.Mutable) error {
		if err := d.Append(crdt.CommentsKey, crdt.Record{"id": "a", "text": "one"}); err != nil {
			return err
		}
		return d.Append(crdt.CommentsKey, crdt.Record{"id": "b", "text": "two"})
	}))
	assert.Equal(t, 1, notified)

	list := v.List(crdt.CommentsKey)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID())
	assert.Equal(t, "two", list[1].Text())

	require.NoError(t, h.Change(func(d crdt.Mutable) error {
		if err := d.Merge(crdt.CommentsKey, 0, crdt.Record{"text": "uno", "color": "red"}); err != nil {
			return err
		}
		return d.Delete(crdt.CommentsKey, 1)
	}))
	list = v.List(crdt.CommentsKey)
	require.Len(t, list, 1)
	assert.Equal(t, "uno", list[0].Text())
	assert.Equal(t, "red", list[0]["color"])

	require.NoError(t, h.Change(func(d crdt.Mutable) error {
		return d.SetList(crdt.CommentsKey, []crdt.Record{{"id": "z", "text": "only"}})
	}))
	list = v.List(crdt.CommentsKey)
	require.Len(t, list, 1)
	assert.Equal(t, "z", list[0].ID())

	unsubscribe()
	require.NoError(t, h.Change(func(d crdt.Mutable) error {
		return d.Append(crdt.CommentsKey, crdt.Record{"id": "y"})
	}))
	assert.Equal(t, 3, notified)
}

func TestChangeWithoutWritesIsSilent(t *testing.T) {
	repo, err := NewRepo(nil)
	require.NoError(t, err)
	defer repo.Close()
	h, err := repo.Create()
	require.NoError(t, err)

	notified := false
	h.OnChange(func() { notified = true })

	require.NoError(t, h.Change(func(crdt.Mutable) error { return nil }))
	assert.False(t, notified)

	err = h.Change(func(d crdt.Mutable) error { return d.Delete(crdt.CommentsKey, 0) })
	assert.True(t, errors.IsNotFoundError(err))
	assert.False(t, notified)
}

func TestNewRepoRejectsForeignAdapter(t *testing.T) {
	_, err := NewRepo(nil, foreignAdapter{})
	assert.Error(t, err)
}

type foreignAdapter struct{}

func (foreignAdapter) Close() error { return nil }

func TestBroadcastBetweenRepos(t *testing.T) {
	channel := t.Name()
	a, err := NewRepo(nil, NewBroadcastAdapter(channel, nil))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRepo(nil, NewBroadcastAdapter(channel, nil))
	require.NoError(t, err)
	defer b.Close()

	ha, err := a.Create()
	require.NoError(t, err)
	require.NoError(t, ha.Change(func(d crdt.Mutable) error {
		return d.Append(crdt.CommentsKey, crdt.Record{"id": "from-a", "text": "hi"})
	}))

	// b tracks the document after a wrote it and pulls a's state
	hb, err := b.Find(ha.URL())
	require.NoError(t, err)
	vb, _ := hb.View()
	require.Len(t, vb.List(crdt.CommentsKey), 1)

	seenByA := 0
	ha.OnChange(func() { seenByA++ })
	require.NoError(t, hb.Change(func(d crdt.Mutable) error {
		return d.Append(crdt.CommentsKey, crdt.Record{"id": "from-b", "text": "hey"})
	}))

	va, _ := ha.View()
	list := va.List(crdt.CommentsKey)
	require.Len(t, list, 2)
	assert.Equal(t, "from-b", list[1].ID())
	assert.Equal(t, 1, seenByA)
}

func TestBroadcastIgnoresUntrackedAndClosed(t *testing.T) {
	channel := t.Name()
	a, err := NewRepo(nil, NewBroadcastAdapter(channel, nil))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRepo(nil, NewBroadcastAdapter(channel, nil))
	require.NoError(t, err)

	ha, err := a.Create()
	require.NoError(t, err)
	require.NoError(t, ha.Change(func(d crdt.Mutable) error {
		return d.Append(crdt.CommentsKey, crdt.Record{"id": "x"})
	}))
	assert.Empty(t, b.Handles())

	hb, err := b.Find(ha.URL())
	require.NoError(t, err)
	require.NoError(t, b.Close())

	require.NoError(t, ha.Change(func(d crdt.Mutable) error {
		return d.Append(crdt.CommentsKey, crdt.Record{"id": "y"})
	}))
	vb, _ := hb.View()
	assert.Len(t, vb.List(crdt.CommentsKey), 1)
}

func TestFailedChangeLeavesNoPartialWrites(t *testing.T) {
	channel := t.Name()
	a, err := NewRepo(nil, NewBroadcastAdapter(channel, nil))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRepo(nil, NewBroadcastAdapter(channel, nil))
	require.NoError(t, err)
	defer b.Close()

	ha, err := a.Create()
	require.NoError(t, err)
	hb, err := b.Find(ha.URL())
	require.NoError(t, err)

	notified := 0
	ha.OnChange(func() { notified++ })

	err = ha.Change(func(d crdt.Mutable) error {
		if err := d.Append(crdt.CommentsKey, crdt.Record{"id": "partial"}); err != nil {
			return err
		}
		return d.Append(crdt.CommentsKey, crdt.Record{"id": "bad", "cb": func() {}})
	})
	require.Error(t, err)
	assert.Equal(t, 0, notified)
	va, _ := ha.View()
	assert.Empty(t, va.List(crdt.CommentsKey))

	require.NoError(t, ha.Change(func(d crdt.Mutable) error {
		return d.Append(crdt.CommentsKey, crdt.Record{"id": "later"})
	}))
	list := va.List(crdt.CommentsKey)
	require.Len(t, list, 1)
	assert.Equal(t, "later", list[0].ID())

	vb, _ := hb.View()
	peer := vb.List(crdt.CommentsKey)
	require.Len(t, peer, 1)
	assert.Equal(t, "later", peer[0].ID())
}

func TestLocalChangesKeepActorAcrossCommits(t *testing.T) {
	repo, err := NewRepo(nil)
	require.NoError(t, err)
	defer repo.Close()
	h, err := repo.Create()
	require.NoError(t, err)

	actor := h.doc.ActorID()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, h.Change(func(d crdt.Mutable) error {
			return d.Append(crdt.CommentsKey, crdt.Record{"id": id})
		}))
	}
	assert.Equal(t, actor, h.doc.ActorID())

	require.NoError(t, h.Change(func(d crdt.Mutable) error {
		return d.Delete(crdt.CommentsKey, 1)
	}))
	v, _ := h.View()
	list := v.List(crdt.CommentsKey)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID())
	assert.Equal(t, "c", list[1].ID())
}

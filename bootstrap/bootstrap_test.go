package bootstrap

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/worldtree/crdt"
	"github.com/teranos/worldtree/crdt/crdttest"
	"github.com/teranos/worldtree/errors"
)

// scriptedLoader fails every source listed in fail and records calls
type scriptedLoader struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	module *Module
}

func (l *scriptedLoader) Load(_ context.Context, source string) (*Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, source)
	if err, ok := l.fail[source]; ok {
		return nil, err
	}
	return l.module, nil
}

func (l *scriptedLoader) called(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c == source {
			return true
		}
	}
	return false
}

func testModule() *Module {
	c := crdttest.NewRuntime().Constructors()
	return &Module{Repo: c.NewRepo, Network: c.NewNetwork, Broadcast: c.NewBroadcast}
}

func pairs(n int) []SourcePair {
	out := make([]SourcePair, n)
	for i := range out {
		n := string(rune('a' + i))
		out[i] = SourcePair{Repo: "repo-" + n, Network: "net-" + n}
	}
	return out
}

func TestThirdPairWinsWithoutFourthAttempt(t *testing.T) {
	loader := &scriptedLoader{
		module: testModule(),
		fail: map[string]error{
			"repo-a": errors.New("unpkg: 404"),
			"net-b":  errors.New("jsdelivr: timeout"),
		},
	}
	b := New(Config{Loader: loader, Sources: pairs(4)})

	c, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Complete())

	assert.True(t, loader.called("repo-c"))
	assert.True(t, loader.called("net-c"))
	assert.False(t, loader.called("repo-d"))
	assert.False(t, loader.called("net-d"))
}

func TestProviderShortCircuits(t *testing.T) {
	loader := &scriptedLoader{module: testModule()}
	provided := crdttest.NewRuntime().Constructors()
	b := New(Config{
		Provider: ProviderFunc(func() (crdt.Constructors, bool) { return provided, true }),
		Loader:   loader,
		Sources:  pairs(2),
	})

	c, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, c.Complete())
	assert.Empty(t, loader.calls)
}

func TestIncompleteProviderFallsBack(t *testing.T) {
	loader := &scriptedLoader{module: testModule()}
	b := New(Config{
		Provider: ProviderFunc(func() (crdt.Constructors, bool) {
			return crdt.Constructors{NewRepo: testModule().Repo}, true
		}),
		Loader:  loader,
		Sources: pairs(1),
	})

	_, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, loader.called("repo-a"))
}

func TestLoadIsMemoized(t *testing.T) {
	loader := &scriptedLoader{module: testModule()}
	b := New(Config{Loader: loader, Sources: pairs(3)})

	_, err := b.Load(context.Background())
	require.NoError(t, err)
	_, err = b.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, loader.calls, 2)
	assert.True(t, b.Cached())
}

func TestExhaustedKeepsLastError(t *testing.T) {
	loader := &scriptedLoader{
		module: testModule(),
		fail: map[string]error{
			"repo-a": errors.New("first failure"),
			"repo-b": errors.New("second failure"),
		},
	}
	b := New(Config{Loader: loader, Sources: pairs(2)})

	_, err := b.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRuntimeUnavailable(err))
	assert.Contains(t, err.Error(), "second failure")
	assert.NotContains(t, err.Error(), "first failure")
	assert.False(t, b.Cached())

	// Failure is not cached
	delete(loader.fail, "repo-a")
	_, err = b.Load(context.Background())
	require.NoError(t, err)
}

func TestNoSourcesIsGenericFailure(t *testing.T) {
	b := New(Config{Loader: &scriptedLoader{}, Sources: []SourcePair{}})

	_, err := b.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRuntimeUnavailable(err))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestCancelledContextStops(t *testing.T) {
	loader := &scriptedLoader{module: testModule()}
	b := New(Config{Loader: loader, Sources: pairs(2)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Load(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsRuntimeUnavailable(err))
	assert.Empty(t, loader.calls)
}

func TestNormalize(t *testing.T) {
	full := testModule()

	t.Run("named export", func(t *testing.T) {
		c, err := Normalize(full, full)
		require.NoError(t, err)
		assert.NotNil(t, c.NewBroadcast)
	})

	t.Run("default export", func(t *testing.T) {
		c, err := Normalize(&Module{Default: full}, &Module{Default: &Module{Network: full.Network}})
		require.NoError(t, err)
		assert.True(t, c.Complete())
		assert.NotNil(t, c.NewBroadcast)
	})

	t.Run("broadcast optional", func(t *testing.T) {
		c, err := Normalize(&Module{Repo: full.Repo}, &Module{Network: full.Network})
		require.NoError(t, err)
		assert.Nil(t, c.NewBroadcast)
	})

	t.Run("missing repo", func(t *testing.T) {
		_, err := Normalize(&Module{Network: full.Network}, full)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "Repo"))
	})

	t.Run("missing network", func(t *testing.T) {
		_, err := Normalize(full, &Module{})
		assert.Error(t, err)
	})
}

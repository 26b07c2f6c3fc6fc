package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveServer(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want string
	}{
		{
			name: "attribute wins over everything",
			in: Inputs{
				Attribute: "wss://attr.example",
				Global:    "wss://global.example",
				ScriptSrc: "https://cdn.example/w.js?server=wss://query.example",
				PageURL:   "https://page.example/",
			},
			want: "wss://attr.example",
		},
		{
			name: "global before query",
			in:   Inputs{Global: "wss://global.example", ScriptSrc: "/w.js?server=wss://q", PageURL: "https://page.example/"},
			want: "wss://global.example",
		},
		{
			name: "script src query",
			in:   Inputs{ScriptSrc: "https://cdn.example/w.js?server=wss%3A%2F%2Fquery.example", PageURL: "https://page.example/"},
			want: "wss://query.example",
		},
		{
			name: "relative script src resolves against page",
			in:   Inputs{ScriptSrc: "/js/w.js?server=ws://localhost:3030", PageURL: "http://localhost:8080/app"},
			want: "ws://localhost:3030",
		},
		{
			name: "same origin https",
			in:   Inputs{ScriptSrc: "/js/w.js", PageURL: "https://example.com/some/page"},
			want: "wss://example.com",
		},
		{
			name: "same origin http keeps port",
			in:   Inputs{PageURL: "http://localhost:5173/"},
			want: "ws://localhost:5173",
		},
		{
			name: "file page has no host",
			in:   Inputs{PageURL: "file:///tmp/index.html"},
			want: DefaultServer,
		},
		{
			name: "nothing at all",
			in:   Inputs{},
			want: "wss://worldtree.online",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveServer(tt.in))
		})
	}
}

func TestRestBase(t *testing.T) {
	assert.Equal(t, "https://worldtree.online", RestBase("wss://worldtree.online"))
	assert.Equal(t, "http://localhost:3030/path", RestBase("ws://localhost:3030/path"))
	assert.Equal(t, "https://odd", RestBase("wss://odd"))
	assert.Equal(t, "https://example.com", RestBase("https://example.com"))

	ep := New("wss://example.com", true)
	assert.Equal(t, "https://example.com", ep.RestBase)
	assert.True(t, ep.AllowServerSwitch)
}

func TestDisplayHost(t *testing.T) {
	assert.Equal(t, "worldtree.online", DisplayHost("wss://worldtree.online"))
	assert.Equal(t, "localhost:3030", DisplayHost("ws://localhost:3030"))
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		raw         string
		val, strict bool
	}{
		{"", true, true},
		{"true", true, true},
		{"1", true, true},
		{"false", false, true},
		{"0", false, true},
		{"yes", true, false},
	}
	for _, tt := range tests {
		v, s := ParseFlag(tt.raw)
		assert.Equal(t, tt.val, v, "value of %q", tt.raw)
		assert.Equal(t, tt.strict, s, "strict of %q", tt.raw)
	}
}

func ptr[T any](v T) *T { return &v }

func TestResolveOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := ResolveOptions(Attributes{}, Globals{})
		assert.Equal(t, Options{Minimized: true}, opts)
	})

	t.Run("attributes", func(t *testing.T) {
		opts := ResolveOptions(Attributes{
			Follow:            ptr(""),
			Minimized:         ptr("0"),
			AllowServerSwitch: ptr("1"),
			DocID:             ptr("abc123"),
			CRDTKey:           ptr("secret-key"),
		}, Globals{})
		assert.True(t, opts.Follow)
		assert.False(t, opts.Minimized)
		assert.True(t, opts.AllowServerSwitch)
		assert.Equal(t, "abc123", opts.DocID)
		assert.Equal(t, "secret-key", opts.CRDTKey)
	})

	t.Run("globals win when set", func(t *testing.T) {
		opts := ResolveOptions(
			Attributes{Follow: ptr("true"), Minimized: ptr("false")},
			Globals{Follow: ptr(false), Minimized: ptr(true)},
		)
		assert.False(t, opts.Follow)
		assert.True(t, opts.Minimized)
	})

	t.Run("attribute doc id beats global", func(t *testing.T) {
		opts := ResolveOptions(Attributes{DocID: ptr("attr")}, Globals{DocID: ptr("global")})
		assert.Equal(t, "attr", opts.DocID)

		opts = ResolveOptions(Attributes{}, Globals{DocID: ptr("global"), CRDTKey: ptr("k")})
		assert.Equal(t, "global", opts.DocID)
		assert.Equal(t, "k", opts.CRDTKey)
	})

	t.Run("server switch needs a strict true", func(t *testing.T) {
		assert.False(t, ResolveOptions(Attributes{AllowServerSwitch: ptr("yes")}, Globals{}).AllowServerSwitch)
		assert.True(t, ResolveOptions(Attributes{AllowServerSwitch: ptr("")}, Globals{}).AllowServerSwitch)
	})
}

// Page served over https://example.com with data-doc-id="abc123" and no
// server attribute.
func TestSameOriginScenario(t *testing.T) {
	attrs := Attributes{DocID: ptr("abc123")}
	in := ServerInputs(attrs, Globals{}, "/worldtree-widget.js", "https://example.com")

	assert.Equal(t, "wss://example.com", ResolveServer(in))
	assert.Equal(t, "abc123", ResolveOptions(attrs, Globals{}).DocID)
}

package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teranos/worldtree/am"
	"github.com/teranos/worldtree/endpoint"
	"github.com/teranos/worldtree/session"
)

// widgetFlags mirror the data-* attributes of the embedding element. A flag
// that was not given stays an absent attribute.
type widgetFlags struct {
	server            string
	docID             string
	crdtKey           string
	follow            string
	minimized         string
	allowServerSwitch string
	scriptSrc         string
	pageURL           string
}

func (f *widgetFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.server, "server", "", "Heartbeat server WebSocket URL (data-server)")
	fs.StringVar(&f.docID, "doc-id", "", "Comments document id or automerge: URL (data-doc-id)")
	fs.StringVar(&f.crdtKey, "crdt-key", "", "Comments key, shown masked (data-crdt-key)")
	fs.StringVar(&f.follow, "follow", "", "Start following the cursor: true|false|1|0 (data-follow)")
	fs.StringVar(&f.minimized, "minimized", "", "Start minimized: true|false|1|0 (data-minimized)")
	fs.StringVar(&f.allowServerSwitch, "allow-server-switch", "", "Offer \"Change sync server…\": true|1 (data-allow-server-switch)")
	fs.StringVar(&f.scriptSrc, "script-src", "", "URL the widget script was loaded from")
	fs.StringVar(&f.pageURL, "page-url", "", "Location of the embedding page")

	// A bare --follow means data-follow="" which reads as true
	fs.Lookup("follow").NoOptDefVal = "true"
	fs.Lookup("minimized").NoOptDefVal = "true"
	fs.Lookup("allow-server-switch").NoOptDefVal = "true"
}

// attributes returns only the flags the user actually passed
func (f *widgetFlags) attributes(cmd *cobra.Command) endpoint.Attributes {
	var attrs endpoint.Attributes
	set := func(name string, v string, dst **string) {
		if cmd.Flags().Changed(name) {
			s := v
			*dst = &s
		}
	}
	set("server", f.server, &attrs.Server)
	set("doc-id", f.docID, &attrs.DocID)
	set("crdt-key", f.crdtKey, &attrs.CRDTKey)
	set("follow", f.follow, &attrs.Follow)
	set("minimized", f.minimized, &attrs.Minimized)
	set("allow-server-switch", f.allowServerSwitch, &attrs.AllowServerSwitch)
	return attrs
}

// globals maps the widget section of the configuration, which is where the
// WORLD_TREE_* variables land
func globals(cfg *am.Config) endpoint.Globals {
	w := cfg.Widget
	g := endpoint.Globals{
		Server:    w.Server,
		Follow:    w.Follow,
		Minimized: w.Minimized,
	}
	if w.DocID != "" {
		id := w.DocID
		g.DocID = &id
	}
	if w.CRDTKey != "" {
		key := w.CRDTKey
		g.CRDTKey = &key
	}
	return g
}

func (f *widgetFlags) sessionConfig(cmd *cobra.Command, cfg *am.Config) session.Config {
	attrs := f.attributes(cmd)
	// allow_server_switch in am.toml stands in for the attribute
	if attrs.AllowServerSwitch == nil && cfg.Widget.AllowServerSwitch {
		v := "true"
		attrs.AllowServerSwitch = &v
	}
	return session.Config{
		Attributes: attrs,
		Globals:    globals(cfg),
		ScriptSrc:  f.scriptSrc,
		PageURL:    f.pageURL,
		Settings:   cfg,
	}
}

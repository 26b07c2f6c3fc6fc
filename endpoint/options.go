package endpoint

// Attributes are the data-* attributes of the embedding element. A nil
// pointer means the attribute is absent.
type Attributes struct {
	Server            *string
	DocID             *string
	CRDTKey           *string
	Follow            *string
	Minimized         *string
	AllowServerSwitch *string
}

// Globals are host-level overrides. A nil pointer means "not set".
type Globals struct {
	Server    string
	DocID     *string
	CRDTKey   *string
	Follow    *bool
	Minimized *bool
}

// Options are the resolved startup behaviour flags and comment settings
type Options struct {
	Follow            bool
	Minimized         bool
	AllowServerSwitch bool
	DocID             string // empty = comments bridge stays idle
	CRDTKey           string
}

// ParseFlag reads a boolean attribute: "", "true" and "1" are true,
// "false" and "0" are false. strict reports whether raw was one of those
// five spellings; any other value reads as true.
func ParseFlag(raw string) (value, strict bool) {
	switch raw {
	case "", "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return true, false
}

// ResolveOptions combines attributes and globals. Explicitly set globals
// win; the widget starts minimized and not following by default.
// AllowServerSwitch is only ever read from the attribute, and requires one
// of the strict true spellings.
func ResolveOptions(attrs Attributes, globals Globals) Options {
	opts := Options{Minimized: true}

	if attrs.Follow != nil {
		opts.Follow, _ = ParseFlag(*attrs.Follow)
	}
	if attrs.Minimized != nil {
		opts.Minimized, _ = ParseFlag(*attrs.Minimized)
	}
	if globals.Follow != nil {
		opts.Follow = *globals.Follow
	}
	if globals.Minimized != nil {
		opts.Minimized = *globals.Minimized
	}

	if attrs.AllowServerSwitch != nil {
		v, strict := ParseFlag(*attrs.AllowServerSwitch)
		opts.AllowServerSwitch = v && strict
	}

	switch {
	case attrs.DocID != nil:
		opts.DocID = *attrs.DocID
	case globals.DocID != nil:
		opts.DocID = *globals.DocID
	}
	switch {
	case attrs.CRDTKey != nil:
		opts.CRDTKey = *attrs.CRDTKey
	case globals.CRDTKey != nil:
		opts.CRDTKey = *globals.CRDTKey
	}
	return opts
}

// ServerInputs builds the server resolution inputs from attributes and globals
func ServerInputs(attrs Attributes, globals Globals, scriptSrc, pageURL string) Inputs {
	in := Inputs{Global: globals.Server, ScriptSrc: scriptSrc, PageURL: pageURL}
	if attrs.Server != nil {
		in.Attribute = *attrs.Server
	}
	return in
}

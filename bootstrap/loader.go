package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/internal/httpclient"
	"github.com/teranos/worldtree/logger"
)

// BuiltinScheme addresses the registry directly: "builtin:automerge-repo@1"
const BuiltinScheme = "builtin:"

// DefaultFetchTimeout bounds one manifest fetch
const DefaultFetchTimeout = 15 * time.Second

// Loader loads one module source
type Loader interface {
	Load(ctx context.Context, source string) (*Module, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context, source string) (*Module, error)

func (f LoaderFunc) Load(ctx context.Context, source string) (*Module, error) { return f(ctx, source) }

// Manifest names the module a remote source stands for. An npm
// package.json qualifies: "name" is read when "module" is absent.
type Manifest struct {
	Module  string `json:"module"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Spec returns the registry spec the manifest selects. The version picks
// the major line; the newest registered release on that line is used.
func (m Manifest) Spec() (string, error) {
	name := m.Module
	if name == "" {
		name = m.Name
	}
	if name == "" {
		return "", errors.New("manifest names no module")
	}
	if m.Version == "" {
		return ModuleName(name), nil
	}
	v, err := semver.NewVersion(m.Version)
	if err != nil {
		return "", errors.Wrapf(err, "manifest version %q", m.Version)
	}
	return fmt.Sprintf("%s@^%d", ModuleName(name), v.Major()), nil
}

// ManifestLoader resolves sources against a Registry. builtin: sources
// resolve directly, http(s) sources are fetched with the SSRF-safe client,
// and anything else (file paths, git, s3, ...) goes through go-getter.
type ManifestLoader struct {
	Registry *Registry
	HTTP     *httpclient.SaferClient
	Timeout  time.Duration
	Logger   *zap.SugaredLogger
}

// NewManifestLoader creates a loader with a default SSRF-safe client
func NewManifestLoader(reg *Registry, timeout time.Duration, log *zap.SugaredLogger) *ManifestLoader {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &ManifestLoader{
		Registry: reg,
		HTTP:     httpclient.NewSaferClient(timeout),
		Timeout:  timeout,
		Logger:   log,
	}
}

// Load resolves source to a registered module
func (l *ManifestLoader) Load(ctx context.Context, source string) (*Module, error) {
	log := logger.OrNop(l.Logger)

	if spec, ok := strings.CutPrefix(source, BuiltinScheme); ok {
		mod, version, err := l.Registry.Resolve(spec)
		if err != nil {
			return nil, err
		}
		log.Debugw("Module source resolved", logger.FieldSource, source, logger.FieldVersion, version)
		return mod, nil
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = l.fetchHTTP(ctx, source)
	} else {
		data, err = l.fetchGetter(ctx, source)
	}
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse manifest from %s", source)
	}
	spec, err := m.Spec()
	if err != nil {
		return nil, errors.Wrapf(err, "manifest from %s", source)
	}
	mod, version, err := l.Registry.Resolve(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest from %s", source)
	}
	log.Debugw("Module source resolved", logger.FieldSource, source, logger.FieldVersion, version)
	return mod, nil
}

func (l *ManifestLoader) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	client := l.HTTP
	if client == nil {
		client = httpclient.NewSaferClient(l.timeout())
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout())
	defer cancel()
	return client.Fetch(ctx, source, httpclient.DefaultMaxBody)
}

// fetchGetter downloads a single manifest file with go-getter
func (l *ManifestLoader) fetchGetter(ctx context.Context, source string) ([]byte, error) {
	tmp, err := os.MkdirTemp("", "worldtree-manifest-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temp dir")
	}
	defer os.RemoveAll(tmp)

	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout())
	defer cancel()

	dst := filepath.Join(tmp, "manifest.json")
	client := &getter.Client{
		Ctx:     ctx,
		Src:     source,
		Dst:     dst,
		Pwd:     pwd,
		Mode:    getter.ClientModeFile,
		Getters: getter.Getters,
	}
	if err := client.Get(); err != nil {
		return nil, errors.Wrapf(err, "fetch %s", source)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest from %s", source)
	}
	return data, nil
}

func (l *ManifestLoader) timeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return DefaultFetchTimeout
}

// Package barrel is the embeddable library surface for barrel's
// log-structured key/value store (SPEC_FULL.md §6). It wires a logger and
// a set of Options into internal/engine and exposes the four operations
// spec.md §4.4 defines, plus Close.
package barrel

import (
	"github.com/mistlake/barrel/internal/engine"
	"github.com/mistlake/barrel/pkg/logger"
	"github.com/mistlake/barrel/pkg/options"
)

// Option configures a barrel Instance. It is options.OptionFunc under a
// name that doesn't leak the internal package layout into this package's
// public API.
type Option = options.OptionFunc

// Instance is an open handle to a barrel store directory.
type Instance struct {
	engine *engine.Engine
}

// Open creates or reopens a barrel store rooted at dir. Segments under
// dir are replayed to rebuild the in-memory index before Open returns, per
// spec.md §4.4.
//
// dir sets the store's data directory before opts is applied, so an
// options.WithDataDir passed in opts overrides it. Callers that want dir to
// be authoritative should not also pass WithDataDir.
func Open(dir string, opts ...Option) (*Instance, error) {
	o := options.NewDefaultOptions()
	options.WithDataDir(dir)(&o)
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.New("barrel")

	eng, err := engine.Open(&engine.Config{Options: &o, Logger: log})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng}, nil
}

// Get retrieves the value stored for key. A missing key is reported as
// ("", false, nil), never as an error.
func (i *Instance) Get(key string) (string, bool, error) {
	return i.engine.Get(key)
}

// Set stores value under key, overwriting any existing value.
func (i *Instance) Set(key, value string) error {
	return i.engine.Set(key, value)
}

// Remove deletes key. It fails without writing anything if key has no
// live value.
func (i *Instance) Remove(key string) error {
	return i.engine.Remove(key)
}

// Close flushes and closes every open segment and releases the store's
// resources. Safe to call more than once.
func (i *Instance) Close() error {
	return i.engine.Close()
}

package stix

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"
)

type registryKey struct {
	version string
	typ     string
}

// Registry maps (spec version, discriminator) to kinds. It is safe for
// concurrent use; registration may happen after parsing has started.
type Registry struct {
	kinds map[registryKey]*Kind
	log   *zap.Logger
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[registryKey]*Kind),
		log:   zap.NewNop(),
	}
}

// SetLogger replaces the registry logger. nil restores the no-op logger.
func (r *Registry) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	r.mu.Lock()
	r.log = l
	r.mu.Unlock()
}

func (r *Registry) logger() *zap.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.log
}

// Register adds k under its version and discriminator. A second kind for the
// same key is rejected.
func (r *Registry) Register(k *Kind) error {
	if k == nil || k.IsEmbedded() {
		return fmt.Errorf("stix: only kinds with a discriminator can be registered")
	}
	key := registryKey{version: k.version, typ: k.typ}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[key]; exists {
		return &DuplicateRegistrationError{Type: k.typ, Version: k.version}
	}
	r.kinds[key] = k
	r.log.Debug("registered kind",
		zap.String("type", k.typ),
		zap.String("version", k.version),
		zap.Int("properties", k.props.Len()),
	)
	return nil
}

// Lookup returns the kind registered for version and typ.
func (r *Registry) Lookup(version, typ string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.kinds[registryKey{version: version, typ: typ}]
	return k, ok
}

// Kinds returns the kinds registered for version sorted by discriminator.
func (r *Registry) Kinds(version string) []*Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Kind, 0, len(r.kinds))
	for key, k := range r.kinds {
		if key.version == version {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].typ < out[j].typ })
	return out
}

// Versions returns the versions with at least one registered kind.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]struct{}{}
	for key := range r.kinds {
		seen[key.version] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the process-wide registry holding the built-in
// 2.0 and 2.1 kinds.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		if err := registerBuiltins(r); err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

func init() { DefaultRegistry() }

// SetLogger sets the logger of the default registry.
func SetLogger(l *zap.Logger) { DefaultRegistry().SetLogger(l) }

// Lookup finds a kind in the default registry.
func Lookup(version, typ string) (*Kind, bool) {
	return DefaultRegistry().Lookup(version, typ)
}

// MustKind is like Lookup but panics when the kind is not registered.
func MustKind(version, typ string) *Kind {
	k, ok := Lookup(version, typ)
	if !ok {
		panic(&UnknownTypeError{Type: typ, Version: version})
	}
	return k
}

// New constructs a record of a registered type from the default registry.
func New(ctx context.Context, version, typ string, fields Fields, opts ...ConstructOpt) (*Object, error) {
	k, ok := Lookup(version, typ)
	if !ok {
		return nil, &UnknownTypeError{Type: typ, Version: version}
	}
	return k.New(ctx, fields, opts...)
}

var (
	typeName20 = regexp.MustCompile(`^[a-z0-9-]+$`)
	typeName21 = regexp.MustCompile(`^[a-z0-9-]{3,250}$`)
)

// CustomObject builds a kind for a custom top-level type. The common
// properties of the version (type, id, created, modified, markings, ...)
// surround props the way they surround the built-in domain objects.
func CustomObject(version, typ string, props PropertySet) (*Kind, error) {
	re := typeName20
	if version == Version21 {
		re = typeName21
	}
	if !re.MatchString(typ) || typ[0] == '-' || typ[len(typ)-1] == '-' {
		return nil, fmt.Errorf("stix: invalid type name %q: must only contain the characters a-z (lowercase ASCII), 0-9, and hyphen (-)", typ)
	}
	head, tail, err := builtinGroups(version)
	if err != nil {
		return nil, err
	}
	b := Properties()
	for _, np := range head {
		b.Add(np.name, bindOwner(np.prop, typ))
	}
	for _, name := range props.names {
		b.Add(name, props.props[name])
	}
	for _, np := range tail {
		b.Add(np.name, np.prop)
	}
	ps, err := b.Build()
	if err != nil {
		return nil, err
	}
	return NewKind(KindDef{Type: typ, Version: version, Properties: ps, DropEmpty: true})
}

// RegisterCustomObject builds a custom kind with CustomObject and adds it to
// the default registry. It is safe to call while other goroutines parse.
func RegisterCustomObject(version, typ string, props PropertySet) (*Kind, error) {
	k, err := CustomObject(version, typ, props)
	if err != nil {
		return nil, err
	}
	if err := DefaultRegistry().Register(k); err != nil {
		return nil, err
	}
	DefaultRegistry().logger().Info("registered custom object", zap.String("type", typ), zap.String("version", version))
	return k, nil
}

package secrets

// Bundle is an in-memory set of secret keys fetched from one store path for
// one run. Values never leave the process through logs or error text; only
// key counts are observable.
type Bundle struct {
	// Source is the store path the bundle was fetched from.
	Source string
	Keys   map[string][]byte
}

// Len returns the number of keys in the bundle.
func (b Bundle) Len() int { return len(b.Keys) }

func newBundle(source string, kv map[string]string) Bundle {
	keys := make(map[string][]byte, len(kv))
	for k, v := range kv {
		keys[k] = []byte(v)
	}
	return Bundle{Source: source, Keys: keys}
}

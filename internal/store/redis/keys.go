package redis

const (
	// KeyPrefixResolve is the prefix for cached network resolutions
	KeyPrefixResolve = "linkwrap:resolve:"
)

// ResolveKey returns the Redis key for a cached resolution
func ResolveKey(key string) string {
	return KeyPrefixResolve + key
}

// ExtractResolveKey strips the resolution prefix from a Redis key
func ExtractResolveKey(key string) (string, bool) {
	if len(key) <= len(KeyPrefixResolve) || key[:len(KeyPrefixResolve)] != KeyPrefixResolve {
		return "", false
	}
	return key[len(KeyPrefixResolve):], true
}

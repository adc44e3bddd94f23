package env

// Option configures formatting behavior.
type Option func(*config)

// config holds the configuration for formatting operations.
type config struct {
	uppercase    bool
	prefix       string
	exportPrefix *bool
}

// WithUppercase converts all keys to uppercase.
func WithUppercase() Option {
	return func(c *config) {
		c.uppercase = true
	}
}

// WithPrefix prepends prefix to keys that do not already start with it.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithExport controls the export keyword in bash output. Defaults to true.
func WithExport(export bool) Option {
	return func(c *config) {
		c.exportPrefix = &export
	}
}

package parser

// Option configures a Parse call.
type Option func(*config)

type config struct {
	libraries   map[string][]string
	prelude     []string
	baseDir     string
	importPaths []string
	functions   []string
	constants   []string
}

func newConfig(opts []Option) *config {
	cfg := &config{libraries: make(map[string][]string)}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLibrary makes a builtin library importable by name.
func WithLibrary(name string, functions []string) Option {
	return func(c *config) {
		c.libraries[name] = append([]string(nil), functions...)
	}
}

// WithPrelude makes a library's functions callable without an importe.
// The library must also be registered with WithLibrary.
func WithPrelude(name string) Option {
	return func(c *config) {
		c.prelude = append(c.prelude, name)
	}
}

// WithBaseDir sets the directory relative file imports resolve against.
func WithBaseDir(dir string) Option {
	return func(c *config) {
		c.baseDir = dir
	}
}

// WithImportPaths adds directories searched after the base directory.
func WithImportPaths(paths ...string) Option {
	return func(c *config) {
		c.importPaths = append(c.importPaths, paths...)
	}
}

// WithFunctions declares names as callable, as if defined by earlier input.
func WithFunctions(names ...string) Option {
	return func(c *config) {
		c.functions = append(c.functions, names...)
	}
}

// WithConstants declares names as constants bound by earlier input.
func WithConstants(names ...string) Option {
	return func(c *config) {
		c.constants = append(c.constants, names...)
	}
}

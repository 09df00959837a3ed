package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/spf13/viper"
)

// PropertySource is a read-only mapping of configuration keys to strings,
// the leaf dependency every other framework component (datasource URL, JWT
// secret, feature toggles) reads from. A concrete Config satisfies it via
// EnvPropertySource; a YAML file satisfies it via FilePropertySource.
type PropertySource interface {
	Get(key string) (string, bool)
	GetOrDefault(key, def string) string
	GetBool(key string, def bool) bool
	GetInt(key string, def int) int
}

// EnvPropertySource flattens a *Config into app.*-style dotted keys so
// framework internals can consult it uniformly regardless of which
// PropertySource backs a given deployment.
type EnvPropertySource struct {
	values map[string]string
}

// NewEnvPropertySource flattens the already-loaded Config into key/value
// pairs under the "app." namespace described in spec.md §6.
func NewEnvPropertySource(cfg *Config) *EnvPropertySource {
	v := map[string]string{
		"app.server.host":             cfg.Server.Host,
		"app.server.port":             strconv.Itoa(cfg.Server.Port),
		"app.datasource.url":          cfg.GetDSN(),
		"app.datasource.username":     cfg.Database.User,
		"app.datasource.password":     cfg.Database.Password,
		"app.datasource.max-pool-size": strconv.Itoa(cfg.Database.MaxPoolSize),
		"app.datasource.min-idle":     strconv.Itoa(cfg.Database.MinIdle),
		"app.orm.dialect":             cfg.ORM.Dialect,
		"app.orm.ddl-auto":            cfg.ORM.DDLAuto,
		"app.orm.show-sql":            strconv.FormatBool(cfg.ORM.ShowSQL),
		"app.jwt.secret":              cfg.JWT.Secret,
		"app.jwt.expiration-hours":    strconv.Itoa(cfg.JWT.ExpirationHours),
		"app.database.enabled":        strconv.FormatBool(cfg.Feature.DatabaseEnabled),
		"app.metrics.enabled":         strconv.FormatBool(cfg.Feature.MetricsEnabled),
		"app.admin.enabled":           strconv.FormatBool(cfg.Feature.AdminEnabled),
	}
	return &EnvPropertySource{values: v}
}

func (s *EnvPropertySource) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *EnvPropertySource) GetOrDefault(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

func (s *EnvPropertySource) GetBool(key string, def bool) bool {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (s *EnvPropertySource) GetInt(key string, def int) int {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// FilePropertySource reads an "application.yaml"-style file via viper. It is
// the lower-priority layer: callers typically consult EnvPropertySource
// first and fall back to a FilePropertySource only for keys the environment
// never set, wiring spf13/viper (present in the teacher's go.mod, unused
// there) into a real component.
type FilePropertySource struct {
	v *viper.Viper
}

// LoadFile reads a YAML property file from disk. A missing file is not an
// error: it simply yields an empty source so callers can treat the file
// layer as optional.
func LoadFile(path string) (*FilePropertySource, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			return &FilePropertySource{v: v}, nil
		}
		return nil, fmt.Errorf("reading property file %s: %w", path, err)
	}
	return &FilePropertySource{v: v}, nil
}

func (s *FilePropertySource) Get(key string) (string, bool) {
	if !s.v.IsSet(key) {
		return "", false
	}
	return s.v.GetString(key), true
}

func (s *FilePropertySource) GetOrDefault(key, def string) string {
	if v, ok := s.Get(key); ok {
		return v
	}
	return def
}

func (s *FilePropertySource) GetBool(key string, def bool) bool {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetBool(key)
}

func (s *FilePropertySource) GetInt(key string, def int) int {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetInt(key)
}

// Layered chains PropertySources in priority order: the first source that
// has a key wins.
type Layered struct {
	sources []PropertySource
}

// NewLayered builds a Layered source, highest priority first.
func NewLayered(sources ...PropertySource) *Layered {
	return &Layered{sources: sources}
}

func (l *Layered) Get(key string) (string, bool) {
	for _, s := range l.sources {
		if v, ok := s.Get(key); ok {
			return v, true
		}
	}
	return "", false
}

func (l *Layered) GetOrDefault(key, def string) string {
	if v, ok := l.Get(key); ok {
		return v
	}
	return def
}

func (l *Layered) GetBool(key string, def bool) bool {
	for _, s := range l.sources {
		if _, ok := s.Get(key); ok {
			return s.GetBool(key, def)
		}
	}
	return def
}

func (l *Layered) GetInt(key string, def int) int {
	for _, s := range l.sources {
		if _, ok := s.Get(key); ok {
			return s.GetInt(key, def)
		}
	}
	return def
}

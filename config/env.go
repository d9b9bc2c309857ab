package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts the name of every variable that overrides a setting.
const EnvPrefix = "REACTOR_"

// readEnv merges the REACTOR_* variables of the env file and of the process.
func readEnv(envFile string) (map[string]string, error) {
	env := make(map[string]string)

	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}

		for k, v := range fileEnv {
			if strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	return env, nil
}

// An envKey is a setting that a variable can override, named by its yaml
// path.
type envKey struct {
	path []string
	text bool
}

// envKeys maps every variable name, without the prefix, to its setting. The
// name is the yaml path in upper case, joined by underscores.
var envKeys = collectEnvKeys(reflect.TypeOf(Config{}), nil)

func collectEnvKeys(t reflect.Type, prefix []string) map[string]envKey {
	keys := make(map[string]envKey)

	for i := range t.NumField() {
		f := t.Field(i)

		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}

		path := append(prefix[:len(prefix):len(prefix)], name)

		if f.Type.Kind() == reflect.Struct {
			maps.Copy(keys, collectEnvKeys(f.Type, path))
			continue
		}

		keys[strings.ToUpper(strings.Join(path, "_"))] = envKey{
			path: path,
			text: f.Type.Kind() == reflect.String,
		}
	}

	return keys
}

// document wraps value into a yaml document that sets only this key. Text
// settings take the value literally.
func (k envKey) document(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
	if k.text {
		n.Tag = "!!str"
	}

	for i := len(k.path) - 1; i >= 0; i-- {
		n = &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: k.path[i]},
				n,
			},
		}
	}

	return n
}

// applyEnv overrides settings with the variables. Unknown REACTOR_*
// variables are ignored.
func (c *Config) applyEnv(env map[string]string) error {
	var errs []error

	for _, name := range slices.Sorted(maps.Keys(env)) {
		key, ok := envKeys[strings.TrimPrefix(name, EnvPrefix)]
		if !ok {
			continue
		}

		if err := key.document(env[name]).Decode(c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

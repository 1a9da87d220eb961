package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/dtcenter/METplus-sub003/lang/diag"
)

// resolve is a [kong.ConfigurationLoader] for YAML configuration files.
//
// Nested mappings are flattened by joining keys with "-", so both of these
// set --log-level and --install-dir:
//
//	log:
//	  level: debug
//	install_dir: /scratch/rt
//
// Underscores and hyphens are interchangeable. Flags given on the command
// line override the file.
func resolve(r io.Reader) (kong.Resolver, error) {
	var doc map[string]any

	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return config{}, nil
		}

		return nil, diag.ErrConfig.Wrap(err)
	}

	cfg := config{}
	cfg.flatten("", doc)

	return cfg, nil
}

// config implements [kong.Resolver] over flattened YAML keys.
type config map[string]any

func (c config) flatten(prefix string, m map[string]any) {
	for k, v := range m {
		key := normalize(k)
		if prefix != "" {
			key = prefix + "-" + key
		}

		if sub, ok := v.(map[string]any); ok {
			c.flatten(key, sub)

			continue
		}

		c[key] = scalar(v)
	}
}

// Validate implements [kong.Resolver].
func (c config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if v, ok := c[normalize(flag.Name)]; ok {
		return v, nil
	}

	return nil, nil
}

func normalize(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", "-"))
}

// scalar converts decoded YAML values to the forms kong's mappers accept.
// Numbers are passed as strings.
func scalar(v any) any {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = scalar(e)
		}

		return out
	case string, bool, nil:
		return x
	default:
		return fmt.Sprint(x)
	}
}

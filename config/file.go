package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/lehrer/langmeta"
)

// FileName is the default config file name.
const FileName = ".lehrer.yaml"

// ErrInvalid wraps every validation failure returned by Load and Validate.
var ErrInvalid = errors.New("invalid configuration")

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the configuration at path on top of Default. An empty path
// reads FileName from the working directory, and a missing default file is
// not an error. A missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.DefaultTarget = strings.ToLower(strings.TrimSpace(c.DefaultTarget))
	c.DefaultSource = strings.ToLower(strings.TrimSpace(c.DefaultSource))
	c.Separator = strings.ToLower(strings.TrimSpace(c.Separator))
	c.Fence = strings.TrimSpace(c.Fence)
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

var (
	vOnce sync.Once
	vInst *validator.Validate
)

func validate() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// prefer yaml key names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("yaml")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		// two-letter ISO 639-1 code known to x/text
		_ = v.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return len(s) == 2 && langmeta.Valid(s)
		})

		vInst = v
	})
	return vInst
}

// Validate checks c against its struct tags. The error lists every failing
// key, e.g. "provider.name: must be one of [google deepl openai]".
func (c *Config) Validate() error {
	err := validate().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldPath(fe)+": "+describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "langcode":
		return fmt.Sprintf("%q is not a two-letter language code", fe.Value())
	case "url":
		return fmt.Sprintf("%q is not a URL", fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%q is not a host:port address", fe.Value())
	case "gte":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

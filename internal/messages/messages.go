// Package messages holds the user-facing texts of the bot. The defaults are embedded;
// a YAML file can override them without a rebuild.
package messages

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"poliglotbot/internal/shared"
)

//go:embed default.yaml
var defaultYAML []byte

// Catalog is the set of texts the bot sends.
type Catalog struct {
	Welcome          string `yaml:"welcome"`
	StartButton      string `yaml:"start_button"`
	StartDescription string `yaml:"start_description"` // shown in the Telegram command menu
	RateLimited      string `yaml:"rate_limited"`
	AccessDenied     string `yaml:"access_denied"`
	Report           string `yaml:"report"`
}

// Default returns the embedded catalog.
func Default() Catalog {
	var c Catalog
	if err := yaml.Unmarshal(defaultYAML, &c); err != nil {
		panic(fmt.Sprintf("messages: embedded catalog is broken: %v", err))
	}
	return c
}

// Load returns the default catalog with keys from path applied on top.
// An empty path yields the defaults.
func Load(path string) (Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, shared.MarkKind(fmt.Errorf("messages: read %s: %w", path, err), shared.KindValidation)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, shared.MarkKind(fmt.Errorf("messages: parse %s: %w", path, err), shared.KindValidation)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks the texts the /start reply cannot do without.
func (c Catalog) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Welcome) == "" {
		errs = append(errs, errors.New("messages: welcome is empty"))
	}
	if strings.TrimSpace(c.StartButton) == "" {
		errs = append(errs, errors.New("messages: start_button is empty"))
	}
	if len(errs) > 0 {
		return shared.MarkKind(errors.Join(errs...), shared.KindValidation)
	}
	return nil
}

// FormatReport fills the {{launches}} and {{users}} slots of the report text.
func (c Catalog) FormatReport(launches, users int64) string {
	return strings.NewReplacer(
		"{{launches}}", strconv.FormatInt(launches, 10),
		"{{users}}", strconv.FormatInt(users, 10),
	).Replace(c.Report)
}

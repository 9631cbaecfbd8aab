package capability

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
	"gopkg.in/yaml.v3"
)

const manifestSuffix = "_agent"

// Endpoint is where a manifest-defined capability delivers its parameters.
type Endpoint struct {
	URL      string            `json:"url" yaml:"url" toml:"url"`
	Method   string            `json:"method" yaml:"method" toml:"method"`
	Headers  map[string]string `json:"headers" yaml:"headers" toml:"headers"`
	Timeout  string            `json:"timeout" yaml:"timeout" toml:"timeout"`
	Delivery string            `json:"delivery" yaml:"delivery" toml:"delivery"`
}

// Manifest is a declarative capability definition held in storage.
type Manifest struct {
	Name           string                         `json:"name" yaml:"name" toml:"name"`
	Description    string                         `json:"description" yaml:"description" toml:"description"`
	Parameters     map[string]contractx.Parameter `json:"parameters" yaml:"parameters" toml:"parameters"`
	Required       []string                       `json:"required" yaml:"required" toml:"required"`
	IdentityScoped bool                           `json:"identity_scoped" yaml:"identity_scoped" toml:"identity_scoped"`
	Endpoint       Endpoint                       `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
}

func (m Manifest) Descriptor() contractx.Descriptor {
	return contractx.Descriptor{
		Name:        strings.TrimSpace(m.Name),
		Description: strings.TrimSpace(m.Description),
		Parameters:  m.Parameters,
		Required:    m.Required,
	}
}

// IsManifestKey reports whether a storage key names a capability manifest:
// a base name ending in _agent with a json, yaml, yml or toml extension.
func IsManifestKey(key string) bool {
	base := path.Base(key)
	ext := strings.ToLower(path.Ext(base))
	switch ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return false
	}
	return strings.HasSuffix(strings.TrimSuffix(base, path.Ext(base)), manifestSuffix)
}

// ParseManifest decodes data according to the extension of key and validates it.
func ParseManifest(key string, data []byte) (Manifest, error) {
	var m Manifest
	var err error
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		err = json.Unmarshal(data, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	case ".toml":
		err = toml.Unmarshal(data, &m)
	default:
		return Manifest{}, fmt.Errorf("%w: unsupported manifest format %q", contractx.ErrManifest, key)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: decode %s: %v", contractx.ErrManifest, key, err)
	}

	if err := ValidateDescriptor(m.Descriptor()); err != nil {
		return Manifest{}, err
	}
	if strings.TrimSpace(m.Endpoint.URL) == "" {
		return Manifest{}, fmt.Errorf("%w: %s has no endpoint url", contractx.ErrManifest, m.Name)
	}
	if _, err := m.timeout(); err != nil {
		return Manifest{}, fmt.Errorf("%w: %s endpoint timeout: %v", contractx.ErrManifest, m.Name, err)
	}
	switch workflow.Delivery(strings.ToLower(strings.TrimSpace(m.Endpoint.Delivery))) {
	case "", workflow.DeliveryDirect, workflow.DeliveryQStash:
	default:
		return Manifest{}, fmt.Errorf("%w: %s has unknown delivery %q", contractx.ErrManifest, m.Name, m.Endpoint.Delivery)
	}
	return m, nil
}

func (m Manifest) timeout() (time.Duration, error) {
	raw := strings.TrimSpace(m.Endpoint.Timeout)
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func (m Manifest) delivery() workflow.Delivery {
	if d := workflow.Delivery(strings.ToLower(strings.TrimSpace(m.Endpoint.Delivery))); d != "" {
		return d
	}
	return workflow.DeliveryDirect
}

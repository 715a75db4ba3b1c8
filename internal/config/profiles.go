package config

import (
	"fmt"
	"os"
	"path/filepath"

	"corewatch/internal/models"

	"gopkg.in/yaml.v3"
)

const DefaultProfilesFile = "profiles.yaml"

// Profiles is the saved list of controller endpoints
type Profiles struct {
	Default string                  `yaml:"default,omitempty"`
	Servers []models.ServerEndpoint `yaml:"servers"`
}

// LoadProfiles reads and parses a YAML profiles file.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profiles{}, err
	}

	var p Profiles
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profiles{}, err
	}
	ApplyProfileDefaults(&p)
	return p, nil
}

// SaveProfiles writes a YAML profiles file to disk. Secrets are stored, so
// the file is private to the user.
func SaveProfiles(path string, p Profiles) error {
	ApplyProfileDefaults(&p)
	data, err := yaml.Marshal(&p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyProfileDefaults fills in default values when empty.
func ApplyProfileDefaults(p *Profiles) {
	for i := range p.Servers {
		s := &p.Servers[i]
		if s.Port == 0 {
			if s.TLS {
				s.Port = 443
			} else {
				s.Port = 9090
			}
		}
		if s.Name == "" {
			s.Name = s.Host
		}
	}
	if p.Default == "" && len(p.Servers) > 0 {
		p.Default = p.Servers[0].Name
	}
}

// ValidateProfiles performs minimal validation for required fields.
func ValidateProfiles(p Profiles) error {
	if len(p.Servers) == 0 {
		return fmt.Errorf("profiles must contain at least one server")
	}
	seen := make(map[string]bool, len(p.Servers))
	for i, s := range p.Servers {
		if s.Host == "" {
			return fmt.Errorf("servers[%d].host is required", i)
		}
		if s.Port < 1 || s.Port > 65535 {
			return fmt.Errorf("servers[%d].port %d out of range", i, s.Port)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate server name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Select returns the named server, or the default one when name is empty
func (p Profiles) Select(name string) (models.ServerEndpoint, error) {
	if name == "" {
		name = p.Default
	}
	for _, s := range p.Servers {
		if s.Name == name {
			return s, nil
		}
	}
	return models.ServerEndpoint{}, fmt.Errorf("no server named %q", name)
}

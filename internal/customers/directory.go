package customers

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/punchout/dashboard/internal/app"
	"gopkg.in/yaml.v3"
)

// Directory is an immutable, ordered set of customer profiles
type Directory struct {
	profiles []app.CustomerProfile
	byID     map[string]int
}

// New validates the profiles and keeps their order
func New(profiles []app.CustomerProfile) (*Directory, error) {
	d := &Directory{
		profiles: make([]app.CustomerProfile, 0, len(profiles)),
		byID:     make(map[string]int, len(profiles)),
	}
	for i, p := range profiles {
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("customer %d: %w", i, err)
		}
		if _, dup := d.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate customer id %q", p.ID)
		}
		d.byID[p.ID] = len(d.profiles)
		d.profiles = append(d.profiles, p)
	}
	return d, nil
}

type fileFormat struct {
	Customers []app.CustomerProfile `yaml:"customers"`
}

// LoadFile reads profiles from a YAML file with a top-level customers list
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read customers file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse customers file %s: %w", path, err)
	}
	if len(f.Customers) == 0 {
		return nil, fmt.Errorf("no customers defined in %s", path)
	}
	return New(f.Customers)
}

func (d *Directory) List() []app.CustomerProfile {
	out := make([]app.CustomerProfile, len(d.profiles))
	copy(out, d.profiles)
	return out
}

func (d *Directory) Get(id string) (app.CustomerProfile, error) {
	i, ok := d.byID[id]
	if !ok {
		return app.CustomerProfile{}, fmt.Errorf("customer %s: %w", id, app.ErrNotFound)
	}
	return d.profiles[i], nil
}

func validate(p app.CustomerProfile) error {
	var missing []string
	if strings.TrimSpace(p.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Domain) == "" {
		missing = append(missing, "domain")
	}
	if strings.TrimSpace(p.BuyerID) == "" {
		missing = append(missing, "buyerId")
	}
	if len(missing) > 0 {
		return errors.New("missing " + strings.Join(missing, ", "))
	}
	return nil
}

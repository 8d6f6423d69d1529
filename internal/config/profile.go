package config

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Profile holds per-user defaults loaded from a YAML file. Zero values
// mean "not set"; only set fields override CLI defaults.
type Profile struct {
	Concurrent    int      `yaml:"concurrent"`
	Depth         int      `yaml:"depth"`
	Timeout       int      `yaml:"timeout"`
	Proxy         string   `yaml:"proxy"`
	Proxies       []string `yaml:"proxies"`
	Output        string   `yaml:"output"`
	StoreCapacity int      `yaml:"store-capacity"`
	Retries       int      `yaml:"retries"`
	Alpha         float64  `yaml:"alpha"`
	Epsilon       float64  `yaml:"epsilon"`
	RPS           float64  `yaml:"rps"`
	RateFloor     int      `yaml:"rate-floor"`
	RateCap       int      `yaml:"rate-cap"`
	Sitemap       *bool    `yaml:"sitemap"`
	Robots        *bool    `yaml:"robots"`
	Subs          *bool    `yaml:"subs"`
}

const profileName = ".surfacer.yaml"

// DefaultPath returns the profile location in the user's home
// directory.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, profileName), nil
}

// Load reads and parses a profile. A missing file at the default path
// is not an error; an explicit path must exist.
func Load(path string) (*Profile, error) {
	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil, nil
		}
		return nil, err
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

package source

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"reelscraper/pkg/models"
)

// Manifest is the YAML document imported by "reelscraper sources import".
type Manifest struct {
	Users []ManifestUser `yaml:"users"`
}

type ManifestUser struct {
	Name     string            `yaml:"name"`
	Inactive bool              `yaml:"inactive,omitempty"`
	Projects []ManifestProject `yaml:"projects"`
}

type ManifestProject struct {
	Name        string   `yaml:"name"`
	Inactive    bool     `yaml:"inactive,omitempty"`
	Competitors []string `yaml:"competitors"`
	Hashtags    []string `yaml:"hashtags"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that every user and project is named and unique.
func (m *Manifest) Validate() error {
	if len(m.Users) == 0 {
		return fmt.Errorf("manifest has no users")
	}

	seenUsers := make(map[string]bool)
	for i, u := range m.Users {
		name := strings.TrimSpace(u.Name)
		if name == "" {
			return fmt.Errorf("user %d: name is required", i+1)
		}
		if seenUsers[name] {
			return fmt.Errorf("user %q: duplicate name", name)
		}
		seenUsers[name] = true

		seenProjects := make(map[string]bool)
		for j, p := range u.Projects {
			pname := strings.TrimSpace(p.Name)
			if pname == "" {
				return fmt.Errorf("user %q project %d: name is required", name, j+1)
			}
			if seenProjects[pname] {
				return fmt.Errorf("user %q project %q: duplicate name", name, pname)
			}
			seenProjects[pname] = true
		}
	}
	return nil
}

// ToModels converts the manifest into model trees ready for import. Blank
// entries are skipped and competitor handles lose their leading @.
func (m *Manifest) ToModels() []models.User {
	users := make([]models.User, 0, len(m.Users))
	for _, mu := range m.Users {
		user := models.User{
			Name:     strings.TrimSpace(mu.Name),
			IsActive: !mu.Inactive,
		}
		for _, mp := range mu.Projects {
			project := models.Project{
				Name:     strings.TrimSpace(mp.Name),
				IsActive: !mp.Inactive,
			}
			for _, c := range mp.Competitors {
				if comp, ok := competitorFrom(c); ok {
					project.Competitors = append(project.Competitors, comp)
				}
			}
			for _, h := range mp.Hashtags {
				if strings.TrimSpace(h) == "" {
					continue
				}
				project.Hashtags = append(project.Hashtags, models.Hashtag{
					TagName:  strings.TrimSpace(h),
					IsActive: true,
				})
			}
			user.Projects = append(user.Projects, project)
		}
		users = append(users, user)
	}
	return users
}

func competitorFrom(descriptor string) (models.Competitor, bool) {
	d := strings.TrimSpace(descriptor)
	if d == "" {
		return models.Competitor{}, false
	}

	if strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://") {
		return models.Competitor{
			Username:   handleFromProfileURL(d),
			ProfileURL: d,
			IsActive:   true,
		}, true
	}

	handle := SanitizeHandle(d)
	if handle == "" {
		return models.Competitor{}, false
	}
	return models.Competitor{Username: handle, IsActive: true}, true
}

// handleFromProfileURL takes the first path segment of a profile URL.
func handleFromProfileURL(profileURL string) string {
	rest := profileURL[strings.Index(profileURL, "://")+3:]
	parts := strings.Split(rest, "/")
	if len(parts) > 1 && parts[1] != "" {
		return SanitizeHandle(parts[1])
	}
	return profileURL
}

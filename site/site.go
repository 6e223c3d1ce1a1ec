// Package site holds the static portfolio content: profile, projects,
// skills and social links. Defaults are embedded and can be replaced by a
// YAML file of the same shape.
package site

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultContent []byte

// Profile is the owner of the site.
type Profile struct {
	Name         string   `yaml:"name"`
	Headline     string   `yaml:"headline"`
	Intro        string   `yaml:"intro"`
	About        []string `yaml:"about"`
	Email        string   `yaml:"email"`
	Discord      string   `yaml:"discord"`
	ResponseTime string   `yaml:"responseTime"`
}

// Project is a portfolio entry.
type Project struct {
	ID               string   `yaml:"id"`
	Title            string   `yaml:"title"`
	ShortDescription string   `yaml:"shortDescription"`
	Description      string   `yaml:"description"`
	Technologies     []string `yaml:"technologies"`
	Images           []string `yaml:"images"`
	Category         string   `yaml:"category"`
	GitHub           string   `yaml:"github"`
	LiveDemo         string   `yaml:"liveDemo"`
	Featured         bool     `yaml:"featured"`
}

// Skill is one item of a skill category. Level is a percentage.
type Skill struct {
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Level int    `yaml:"level"`
}

// SkillCategory groups skills under a heading.
type SkillCategory struct {
	Category string  `yaml:"category"`
	Items    []Skill `yaml:"items"`
}

// SocialLink points at an external profile.
type SocialLink struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Icon string `yaml:"icon"`
}

// Content is everything the public pages show besides the blog.
type Content struct {
	Profile     Profile         `yaml:"profile"`
	Projects    []Project       `yaml:"projects"`
	Skills      []SkillCategory `yaml:"skills"`
	SocialLinks []SocialLink    `yaml:"socialLinks"`
}

// Default returns the embedded content.
func Default() (Content, error) {
	return Parse(defaultContent)
}

// Parse decodes YAML content and validates it.
func Parse(data []byte) (Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Content{}, fmt.Errorf("site: decode content: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Content{}, err
	}
	return c, nil
}

// Load reads content from path. An empty path returns the embedded
// defaults.
func Load(path string) (Content, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("site: read %s: %w", path, err)
	}
	return Parse(data)
}

// Validate rejects projects without id or title, duplicate project ids and
// skill levels outside 0..100.
func (c Content) Validate() error {
	seen := make(map[string]struct{}, len(c.Projects))
	for i, p := range c.Projects {
		if p.ID == "" || p.Title == "" {
			return fmt.Errorf("site: project %d needs an id and a title", i)
		}
		if _, ok := seen[p.ID]; ok {
			return fmt.Errorf("site: duplicate project id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	for _, cat := range c.Skills {
		for _, s := range cat.Items {
			if s.Level < 0 || s.Level > 100 {
				return fmt.Errorf("site: skill %q level %d out of range", s.Name, s.Level)
			}
		}
	}
	return nil
}

// FeaturedProjects returns projects marked featured, in order.
func (c Content) FeaturedProjects() []Project {
	var out []Project
	for _, p := range c.Projects {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

// Categories returns the distinct project categories in first-seen order.
func (c Content) Categories() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range c.Projects {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// ProjectsInCategory filters projects by category. An empty category
// returns all projects.
func (c Content) ProjectsInCategory(category string) []Project {
	if category == "" {
		return c.Projects
	}
	var out []Project
	for _, p := range c.Projects {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

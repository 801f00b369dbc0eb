package config

import (
	"fmt"
	"os"

	"github.com/aq/jobtree/pkg/jobtree"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultRedisURL is used when neither the file nor the environment names a server.
const DefaultRedisURL = "redis://localhost:6379"

// Environment variables overriding the file, in order of precedence.
const (
	EnvRedisURL       = "JOBTREE_REDIS_URL"
	EnvRedisURLCommon = "REDIS_URL"
	EnvNamespace      = "JOBTREE_NAMESPACE"
)

// Config represents the top-level jobtree.yml configuration
type Config struct {
	Version  string       `yaml:"version"`
	Redis    *RedisConfig `yaml:"redis,omitempty"`
	LogLevel string       `yaml:"log_level,omitempty"` // logrus level name, default "warn"
	Trees    []TreeConfig `yaml:"trees"`
}

// RedisConfig specifies where node state is stored
type RedisConfig struct {
	URL       string `yaml:"url,omitempty"`
	Namespace string `yaml:"namespace,omitempty"` // Key prefix, default "JobsTree"
}

// TreeConfig declares one tree and its job hierarchy
type TreeConfig struct {
	Name string    `yaml:"name"`
	Root JobConfig `yaml:"root"`
}

// JobConfig declares a job, its child rule and the jobs nested beneath it
type JobConfig struct {
	Name     string        `yaml:"name"`
	Children []ChildConfig `yaml:"children,omitempty"`
	Jobs     []JobConfig   `yaml:"jobs,omitempty"`
}

// ChildConfig is one entry of a static child rule.
// Append adds fixed values to the parent's resources. Each fans out into one
// child per value, appended after Append.
type ChildConfig struct {
	Job    string `yaml:"job"`
	Append []any  `yaml:"append,omitempty"`
	Each   []any  `yaml:"each,omitempty"`
}

// Validate performs strict validation on the configuration and applies defaults
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: at least one tree
	if len(c.Trees) == 0 {
		return fmt.Errorf("no trees defined")
	}

	treesSeen := make(map[string]bool)
	for i, tree := range c.Trees {
		if tree.Name == "" {
			return fmt.Errorf("tree #%d: name is required", i+1)
		}
		if treesSeen[tree.Name] {
			return fmt.Errorf("duplicate tree name '%s'", tree.Name)
		}
		treesSeen[tree.Name] = true

		jobsSeen := make(map[string]bool)
		if err := tree.Root.validate(tree.Name, jobsSeen); err != nil {
			return err
		}
	}

	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if c.Redis.Namespace == "" {
		c.Redis.Namespace = jobtree.DefaultNamespace
	}
	if c.Redis.URL == "" {
		c.Redis.URL = DefaultRedisURL
	}

	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}

	return nil
}

func (j *JobConfig) validate(treeName string, seen map[string]bool) error {
	if j.Name == "" {
		return fmt.Errorf("tree '%s': job name is required", treeName)
	}
	if seen[j.Name] {
		return fmt.Errorf("tree '%s': duplicate job name '%s'", treeName, j.Name)
	}
	seen[j.Name] = true

	nested := make(map[string]bool, len(j.Jobs))
	for _, sub := range j.Jobs {
		nested[sub.Name] = true
	}
	for _, child := range j.Children {
		if !nested[child.Job] {
			return fmt.Errorf("tree '%s': job '%s' spawns '%s' which is not nested beneath it", treeName, j.Name, child.Job)
		}
		if err := validateScalars(child.Append); err != nil {
			return fmt.Errorf("tree '%s': job '%s' child '%s' append: %w", treeName, j.Name, child.Job, err)
		}
		if err := validateScalars(child.Each); err != nil {
			return fmt.Errorf("tree '%s': job '%s' child '%s' each: %w", treeName, j.Name, child.Job, err)
		}
	}

	for i := range j.Jobs {
		if err := j.Jobs[i].validate(treeName, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateScalars(values []any) error {
	_, err := jobtree.NormalizeResources(values...)
	return err
}

// ApplyEnv overrides file values with environment variables
func (c *Config) ApplyEnv() {
	if c.Redis == nil {
		c.Redis = &RedisConfig{}
	}
	if url := os.Getenv(EnvRedisURL); url != "" {
		c.Redis.URL = url
	} else if url := os.Getenv(EnvRedisURLCommon); url != "" {
		c.Redis.URL = url
	}
	if ns := os.Getenv(EnvNamespace); ns != "" {
		c.Redis.Namespace = ns
	}
}

// Catalog converts the declared trees into a job catalog.
func (c *Config) Catalog() (*jobtree.Catalog, error) {
	defs := make([]*jobtree.TreeDefinition, 0, len(c.Trees))
	for _, tree := range c.Trees {
		def := jobtree.NewTree(tree.Name, tree.Root.Name, tree.Root.options()...)
		declareJobs(def.Root(), tree.Root.Jobs)
		defs = append(defs, def)
	}
	return jobtree.NewCatalog(defs...)
}

func declareJobs(parent *jobtree.JobDefinition, jobs []JobConfig) {
	for _, job := range jobs {
		def := parent.Node(job.Name, job.options()...)
		declareJobs(def, job.Jobs)
	}
}

func (j *JobConfig) options() []jobtree.JobOption {
	if len(j.Children) == 0 {
		return nil
	}
	return []jobtree.JobOption{jobtree.WithChildren(jobtree.StaticChildren(j.childSpecs()...))}
}

func (j *JobConfig) childSpecs() []jobtree.ChildSpec {
	var specs []jobtree.ChildSpec
	for _, child := range j.Children {
		if len(child.Each) == 0 {
			specs = append(specs, jobtree.ChildSpec{Job: child.Job, Append: child.Append})
			continue
		}
		for _, v := range child.Each {
			appended := make([]any, 0, len(child.Append)+1)
			appended = append(appended, child.Append...)
			appended = append(appended, v)
			specs = append(specs, jobtree.ChildSpec{Job: child.Job, Append: appended})
		}
	}
	return specs
}

// Load reads and validates jobtree.yml from the specified path, then applies
// environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.ApplyEnv()
	return &config, nil
}

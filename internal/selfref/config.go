package selfref

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// RefKind selects which kind of reference the run writes.
type RefKind int

const (
	ObjectRefs RefKind = iota
	RegionRefs
)

func (k RefKind) String() string {
	switch k {
	case ObjectRefs:
		return "object"
	case RegionRefs:
		return "region"
	default:
		return fmt.Sprintf("RefKind(%d)", int(k))
	}
}

// ParseRefKind accepts "object" or "region".
func ParseRefKind(s string) (RefKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "object", "obj":
		return ObjectRefs, nil
	case "region", "dataset_region":
		return RegionRefs, nil
	default:
		return 0, fmt.Errorf("unknown reference kind %q (want object or region)", s)
	}
}

func (k *RefKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	kind, err := ParseRefKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*k = kind
	return nil
}

func (k RefKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// Config describes one run. Path and Verify come from the command line;
// the rest may be overridden by a plan file.
type Config struct {
	Path    string  `yaml:"-"`
	Verify  bool    `yaml:"-"`
	Dataset string  `yaml:"dataset"`
	Length  uint64  `yaml:"length"`
	Kind    RefKind `yaml:"kind"`
	Start   uint64  `yaml:"start"`
	Count   uint64  `yaml:"count"`
}

// DefaultConfig writes three object references to /testDs. In region
// mode each reference selects elements 0 and 1.
func DefaultConfig(path string) Config {
	return Config{
		Path:    path,
		Dataset: "/testDs",
		Length:  3,
		Kind:    ObjectRefs,
		Start:   0,
		Count:   2,
	}
}

// LoadPlan decodes a YAML plan from r over cfg. Fields absent from the
// plan keep their current values; unknown fields are an error.
func LoadPlan(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode plan: %w", err)
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("output path is empty")
	}
	if !strings.HasPrefix(c.Dataset, "/") || strings.Contains(c.Dataset[1:], "/") || len(c.Dataset) < 2 {
		return fmt.Errorf("dataset %q must be a single name under the root group", c.Dataset)
	}
	if c.Length == 0 {
		return errors.New("length must be positive")
	}
	switch c.Kind {
	case ObjectRefs:
	case RegionRefs:
		if c.Count == 0 {
			return errors.New("region count must be positive")
		}
		if c.Start >= c.Length || c.Count > c.Length-c.Start {
			return fmt.Errorf("region [%d, %d) outside length %d", c.Start, c.Start+c.Count, c.Length)
		}
	default:
		return fmt.Errorf("invalid reference kind %s", c.Kind)
	}
	return nil
}

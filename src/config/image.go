package config

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImageSpec declares one image and the tags that must exist for it.
// Tag order is declaration order and is kept through planning and emission.
type ImageSpec struct {
	Name        string   `yaml:"name" toml:"name"`
	Tags        []string `yaml:"tags" toml:"tags"`
	Description string   `yaml:"description" toml:"description"`
}

// ImageList keeps images in the order they were declared.
//
// In YAML it accepts either a mapping keyed by image name (the historical
// docker.yml layout) or a sequence of ImageSpec:
//
//	images:
//	  github-linters:
//	    description: Linters for GitHub Actions
//	    tags: [v3, v3-test]
//	  python:
//	    - "3.12"            # shorthand: a plain tag list
//
// TOML has no ordered tables, so TOML files use [[images]] arrays.
type ImageList []ImageSpec

// Lookup returns the image with the given name.
func (l ImageList) Lookup(name string) (ImageSpec, bool) {
	for _, img := range l {
		if img.Name == name {
			return img, true
		}
	}
	return ImageSpec{}, false
}

// Names returns image names in declaration order.
func (l ImageList) Names() []string {
	names := make([]string, 0, len(l))
	for _, img := range l {
		names = append(names, img.Name)
	}
	return names
}

// UnmarshalYAML implements the mapping and sequence forms described on ImageList.
func (l *ImageList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		for i, item := range value.Content {
			if err := checkKeys(fmt.Sprintf("images[%d]", i), item, "name", "tags", "description"); err != nil {
				return err
			}
		}
		var specs []ImageSpec
		if err := value.Decode(&specs); err != nil {
			return fmt.Errorf("images: %w", err)
		}
		*l = specs
		return nil

	case yaml.MappingNode:
		specs := make([]ImageSpec, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, body := value.Content[i], value.Content[i+1]
			spec, err := decodeImageBody(key.Value, body)
			if err != nil {
				return err
			}
			specs = append(specs, spec)
		}
		*l = specs
		return nil

	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = nil
			return nil
		}
	}
	return fmt.Errorf("images: expected mapping or sequence, got YAML kind %d", value.Kind)
}

func decodeImageBody(name string, body *yaml.Node) (ImageSpec, error) {
	spec := ImageSpec{Name: name}

	switch body.Kind {
	case yaml.SequenceNode:
		if err := body.Decode(&spec.Tags); err != nil {
			return spec, fmt.Errorf("images.%s: %w", name, err)
		}
	case yaml.MappingNode:
		if err := checkKeys("images."+name, body, "tags", "description"); err != nil {
			return spec, err
		}
		var fields struct {
			Tags        []string `yaml:"tags"`
			Description string   `yaml:"description"`
		}
		if err := body.Decode(&fields); err != nil {
			return spec, fmt.Errorf("images.%s: %w", name, err)
		}
		spec.Tags = fields.Tags
		spec.Description = fields.Description
	default:
		return spec, fmt.Errorf("images.%s: expected mapping or tag list, got %q", name, body.Value)
	}
	return spec, nil
}

// checkKeys rejects mapping keys outside allowed. Node.Decode does not
// inherit the decoder's KnownFields setting, so nested bodies check here.
func checkKeys(path string, node *yaml.Node, allowed ...string) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !slices.Contains(allowed, key.Value) {
			return fmt.Errorf("%s: line %d: unknown field %q (allowed: %s)", path, key.Line, key.Value, strings.Join(allowed, ", "))
		}
	}
	return nil
}

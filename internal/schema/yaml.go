package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/maruel/docstore/internal/errors"
)

// ParseYAML reads a Definition from a YAML mapping, preserving field order.
//
//	name: {type: text, required: true}
//	email: text
//	age: {type: number, default: 18}
//	tags: {type: list, items: text}
//	address:
//	  type: nested
//	  fields:
//	    city: {type: text, required: true}
//
// A scalar value is shorthand for {type: <value>}.
func ParseYAML(data []byte) (Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Config("failed to parse schema: %v", err).Wrap(err)
	}
	if doc.Kind == 0 {
		return nil, errors.Config("schema is empty")
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, errors.Config("schema is empty")
		}
		root = root.Content[0]
	}
	return definitionFromNode(root)
}

func definitionFromNode(n *yaml.Node) (Definition, error) {
	if n.Kind != yaml.MappingNode {
		return nil, nodeErr(n, "expected a mapping of field names")
	}
	def := make(Definition, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		spec, err := specFromNode(val)
		if err != nil {
			return nil, err
		}
		def = append(def, Field{Name: key.Value, Spec: spec})
	}
	return def, nil
}

func specFromNode(n *yaml.Node) (FieldSpec, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		tag, err := ParseTypeTag(n.Value)
		if err != nil {
			return FieldSpec{}, nodeErr(n, err.Error())
		}
		return FieldSpec{Type: tag}, nil
	case yaml.MappingNode:
	default:
		return FieldSpec{}, nodeErr(n, "expected a type name or a field mapping")
	}
	var spec FieldSpec
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		switch key.Value {
		case "type":
			tag, err := ParseTypeTag(val.Value)
			if err != nil {
				return FieldSpec{}, nodeErr(val, err.Error())
			}
			spec.Type = tag
		case "required":
			if err := val.Decode(&spec.Required); err != nil {
				return FieldSpec{}, nodeErr(val, err.Error())
			}
		case "unique":
			if err := val.Decode(&spec.Unique); err != nil {
				return FieldSpec{}, nodeErr(val, err.Error())
			}
		case "default":
			if err := val.Decode(&spec.Default); err != nil {
				return FieldSpec{}, nodeErr(val, err.Error())
			}
		case "items":
			items, err := specFromNode(val)
			if err != nil {
				return FieldSpec{}, err
			}
			spec.Items = &items
		case "fields":
			fields, err := definitionFromNode(val)
			if err != nil {
				return FieldSpec{}, err
			}
			spec.Fields = fields
		default:
			return FieldSpec{}, nodeErr(key, fmt.Sprintf("unknown field option %q", key.Value))
		}
	}
	if spec.Type == "" {
		return FieldSpec{}, nodeErr(n, "type is required")
	}
	return spec, nil
}

func nodeErr(n *yaml.Node, msg string) error {
	return errors.Config("schema line %d: %s", n.Line, msg)
}

package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func printValue(w io.Writer, format string, value any) error {
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	switch format {
	case "json":
		_, err = w.Write(append(b, '\n'))
		return err
	case "yaml", "":
		out, err := jsonToYAML(b)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	return errors.Errorf("unknown output format %q", format)
}

// jsonToYAML re-encodes JSON as block style YAML, keeping the key order of
// the JSON encoding.
func jsonToYAML(b []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, errors.Wrap(err, "convert output to yaml")
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

func blockStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Style == yaml.DoubleQuotedStyle && n.Tag == "!!str" {
		n.Style = 0
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

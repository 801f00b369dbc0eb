package commands

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aq/jobtree/internal/printer"
	"github.com/aq/jobtree/pkg/jobtree"
)

// parseResources reads each argument as a JSON scalar, so "3" is a number and
// "true" a bool. Anything else, including JSON arrays and objects, is kept as
// a plain string.
func parseResources(args []string) (jobtree.Resources, error) {
	values := make([]any, 0, len(args))
	for _, arg := range args {
		values = append(values, parseScalar(arg))
	}
	return jobtree.NormalizeResources(values...)
}

func parseScalar(arg string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return arg
	}
	switch v.(type) {
	case nil, bool, string, json.Number:
		return v
	}
	return arg
}

// spawnFromArgs builds the node handle named by <tree> <job> [resource...].
func (s *session) spawnFromArgs(args []string) (*jobtree.Node, error) {
	resources, err := parseResources(args[2:])
	if err != nil {
		return nil, err
	}

	node, err := s.client.Spawn(args[0], args[1], resources, nil)
	if jobtree.IsUnknownJob(err) {
		return nil, printer.ErrorWithContext(
			"unknown job",
			fmt.Sprintf("Job '%s' is not declared in tree '%s'.", args[1], args[0]),
			map[string]string{"Config": configPath},
			[]string{"List declared trees:\n  jobtree trees --declared"},
		)
	}
	return node, err
}

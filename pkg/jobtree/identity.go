package jobtree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Resources is the ordered list of scalar values that parameterizes one
// instantiation of a job. Values are canonicalized to int64, float64, string,
// bool or nil so that a node rebuilt from storage compares equal to the one
// that was spawned.
type Resources []any

// NormalizeResources canonicalizes arbitrary scalar values.
// Non-scalar values (maps, slices, structs) are rejected.
func NormalizeResources(values ...any) (Resources, error) {
	if len(values) == 0 {
		return Resources{}, nil
	}
	encoded, err := encodeArray(values)
	if err != nil {
		return nil, fmt.Errorf("invalid resources: %w", err)
	}
	decoded, err := decodeArray(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid resources: %w", err)
	}
	return decoded, nil
}

// Equal reports whether both lists serialize identically.
func (r Resources) Equal(other Resources) bool {
	a, errA := encodeArray(r)
	b, errB := encodeArray(other)
	return errA == nil && errB == nil && a == b
}

// String renders the resources in their storage form, e.g. [1,2,3].
func (r Resources) String() string {
	s, err := encodeArray(r)
	if err != nil {
		return fmt.Sprintf("%v", []any(r))
	}
	return s
}

// NodeID is the canonical identity of a node: tree name, job name and resources.
type NodeID struct {
	Tree      string
	Job       string
	Resources Resources
}

// Serialize returns the canonical array form ["tree","job",r0,r1,...].
// The textual form is part of the storage contract.
func Serialize(treeName, jobName string, resources Resources) (string, error) {
	values := make([]any, 0, len(resources)+2)
	values = append(values, treeName, jobName)
	values = append(values, resources...)
	return encodeArray(values)
}

// ParseNodeKey decomposes a full node key ({namespace}:Node:[...]) back into its identity.
// Returns ErrMalformedKey if the key does not follow the node key schema.
func ParseNodeKey(namespace, key string) (NodeID, error) {
	prefix := NodeKeyPrefix(namespace)
	if !strings.HasPrefix(key, prefix) {
		return NodeID{}, fmt.Errorf("%w: %q lacks prefix %q", ErrMalformedKey, key, prefix)
	}

	values, err := decodeArray(strings.TrimPrefix(key, prefix))
	if err != nil {
		return NodeID{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, key, err)
	}
	if len(values) < 2 {
		return NodeID{}, fmt.Errorf("%w: %q: expected tree and job names", ErrMalformedKey, key)
	}

	treeName, ok := values[0].(string)
	if !ok {
		return NodeID{}, fmt.Errorf("%w: %q: tree name is not a string", ErrMalformedKey, key)
	}
	jobName, ok := values[1].(string)
	if !ok {
		return NodeID{}, fmt.Errorf("%w: %q: job name is not a string", ErrMalformedKey, key)
	}

	return NodeID{Tree: treeName, Job: jobName, Resources: values[2:]}, nil
}

// Decompose returns the job name and resources encoded in a node key.
func Decompose(namespace, key string) (string, Resources, error) {
	id, err := ParseNodeKey(namespace, key)
	if err != nil {
		return "", nil, err
	}
	return id.Job, id.Resources, nil
}

func encodeArray(values []any) (string, error) {
	if values == nil {
		values = []any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(values); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func decodeArray(s string) (Resources, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var values []any
	if err := dec.Decode(&values); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after array")
	}
	if values == nil {
		return nil, fmt.Errorf("expected an array")
	}

	out := make(Resources, len(values))
	for i, v := range values {
		c, err := canonicalScalar(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func canonicalScalar(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported resource type %T", v)
	}
}

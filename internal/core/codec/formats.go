package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// JSONFormat writes the envelope as a JSON object.
type JSONFormat struct{}

func (JSONFormat) Name() string { return "json" }

func (JSONFormat) Marshal(env map[string]any) ([]byte, error) {
	return json.Marshal(env)
}

func (JSONFormat) Unmarshal(data []byte) (map[string]any, error) {
	var env map[string]any
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env, nil
}

// YAMLFormat writes the envelope as a YAML mapping.
type YAMLFormat struct{}

func (YAMLFormat) Name() string { return "yaml" }

func (YAMLFormat) Marshal(env map[string]any) ([]byte, error) {
	return yaml.Marshal(env)
}

func (YAMLFormat) Unmarshal(data []byte) (map[string]any, error) {
	var env map[string]any
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env, nil
}

// TOMLFormat writes the envelope as a TOML document. TOML has no null,
// so values containing nil are rejected.
type TOMLFormat struct{}

var errTOMLNull = errors.New("toml cannot represent null values")

func (TOMLFormat) Name() string { return "toml" }

func (TOMLFormat) Marshal(env map[string]any) ([]byte, error) {
	if containsNil(env) {
		return nil, errTOMLNull
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (TOMLFormat) Unmarshal(data []byte) (map[string]any, error) {
	var env map[string]any
	if _, err := toml.Decode(string(data), &env); err != nil {
		return nil, err
	}
	return env, nil
}

func containsNil(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		for _, e := range t {
			if containsNil(e) {
				return true
			}
		}
	case map[string]any:
		for _, e := range t {
			if containsNil(e) {
				return true
			}
		}
	}
	return false
}

// ProtobufFormat writes the envelope as a google.protobuf.Value.
type ProtobufFormat struct{}

func (ProtobufFormat) Name() string { return "protobuf" }

func (ProtobufFormat) Marshal(env map[string]any) ([]byte, error) {
	v, err := structpb.NewValue(env)
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (ProtobufFormat) Unmarshal(data []byte) (map[string]any, error) {
	var v structpb.Value
	if err := proto.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	env, ok := v.AsInterface().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a struct value, got %T", v.AsInterface())
	}
	return env, nil
}

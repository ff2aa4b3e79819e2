// Package config loads, merges, and validates the YAML documents that
// describe a split: the ordered segments list, the options block, and
// the optional expected ROM checksum.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a decoded configuration document. Multiple documents
// merge in argument order; later documents win for scalar keys.
type Document map[string]any

// Load reads and merges one or more YAML configuration files in order.
// The merged document is schema-validated before it is returned.
func Load(paths ...string) (Document, error) {
	merged := Document{}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &Error{Code: ErrCodeNotFound, Key: path, Message: "config file not found"}
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}

		// Decode into an unnamed map type: yaml.v3 reuses the
		// destination's map type for nested mappings, and downstream
		// type switches expect plain map[string]any values.
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}

		if err := Merge(merged, doc); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// Merge folds src into dst in place.
//
// Merge rules, per key:
//   - list + list: concatenate, dst elements first
//   - mapping + mapping: merge recursively
//   - scalar + scalar: src replaces dst
//   - any kind mismatch between list and mapping forms is fatal
func Merge(dst Document, src Document) error {
	for key, srcVal := range src {
		dstVal, exists := dst[key]
		if !exists {
			dst[key] = srcVal
			continue
		}

		merged, err := mergeValue(key, dstVal, srcVal)
		if err != nil {
			return err
		}
		dst[key] = merged
	}
	return nil
}

func mergeValue(key string, dst, src any) (any, error) {
	dstKind := kindOf(dst)
	srcKind := kindOf(src)
	if dstKind != srcKind {
		return nil, &Error{
			Code:    ErrCodeMergeConflict,
			Key:     key,
			Message: fmt.Sprintf("cannot merge %s into %s", srcKind, dstKind),
		}
	}

	switch dstKind {
	case kindList:
		return append(toList(dst), toList(src)...), nil

	case kindMapping:
		dstMap := toMap(dst)
		for k, v := range toMap(src) {
			existing, exists := dstMap[k]
			if !exists {
				dstMap[k] = v
				continue
			}
			merged, err := mergeValue(key+"."+k, existing, v)
			if err != nil {
				return nil, err
			}
			dstMap[k] = merged
		}
		return dstMap, nil

	default:
		// Scalars: the later document wins.
		return src, nil
	}
}

type valueKind string

const (
	kindList    valueKind = "list"
	kindMapping valueKind = "mapping"
	kindScalar  valueKind = "scalar"
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case []any:
		return kindList
	case map[string]any, Document:
		return kindMapping
	default:
		return kindScalar
	}
}

func toList(v any) []any {
	return v.([]any)
}

func toMap(v any) map[string]any {
	switch m := v.(type) {
	case Document:
		return m
	default:
		return v.(map[string]any)
	}
}

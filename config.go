// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetmap

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings is the file form of a settings tree.
type Settings struct {
	Sheets []*SheetSpec `yaml:"sheets" validate:"required,min=1,dive,required"`
}

// LoadSettingsFile loads the YAML settings tree from path.
func LoadSettingsFile(path string) ([]*SheetSpec, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	defer fh.Close()
	return LoadSettings(fh)
}

// LoadSettings decodes a YAML settings tree. Unknown fields are rejected.
func LoadSettings(r io.Reader) ([]*SheetSpec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Settings
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if err := validateSettings(s.Sheets); err != nil {
		return nil, err
	}
	return s.Sheets, nil
}

func validateSettings(specs []*SheetSpec) error {
	if len(specs) == 0 {
		return &ConfigError{Err: errors.New("no sheets")}
	}
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec == nil {
			return &ConfigError{Err: errors.New("nil sheet")}
		}
		if seen[spec.Name] {
			return &ConfigError{Sheet: spec.Name, Err: errors.New("duplicate sheet name")}
		}
		seen[spec.Name] = true
		if err := validate.Struct(spec); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) != 0 {
				fe := verrs[0]
				return &ConfigError{Sheet: spec.Name, Err: fmt.Errorf("%s failed on %q: %w", fe.Namespace(), fe.Tag(), err)}
			}
			return &ConfigError{Sheet: spec.Name, Err: err}
		}
	}
	return nil
}

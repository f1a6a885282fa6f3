// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config reads plain configuration values from the environment
// or YAML documents and decodes them into tagged structs.
//
// Sources are applied in order, later ones overriding earlier ones:
//
//	m, err := config.Read(
//	    config.FromYaml(f),
//	    config.FromEnv("LOG_"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	cfg := defaults()
//	err = m.Unmarshal(&cfg)
//
// Struct fields are matched through the `config` tag.
package config

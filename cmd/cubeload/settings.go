// Copyright 2026 The Cube Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds cubeload configuration from a YAML file such as
//
//	driver: mysql
//	dsn: "user:password@tcp(db:3306)/cubes"
//	metric: time
//	top: 5
type Settings struct {
	// Driver and DSN select the database, as for sql.Open.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`

	// Metric, if set, is the unique name of a metric whose
	// largest call paths are printed after each load.
	Metric string `yaml:"metric"`
	Top    int    `yaml:"top"`
}

// LoadSettings reads the settings file at path.
// Returns nil (not an error) if the file does not exist.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &s, nil
}

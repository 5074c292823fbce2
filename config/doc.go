// Copyright 2026 EmbedProxy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package config provides configuration management for the embedding
batch proxy.

# Overview

config loads configuration from three layered sources, in increasing
priority: built-in defaults, an optional YAML file, and environment
variables.

# Core types

  - Config: top-level configuration, covering Server, Batch, Upstream,
    Cache, Database, Log, and Telemetry.
  - Loader: builder-style configuration loader, chaining config file
    path, environment variable prefix, and custom validators.

# Capabilities

  - Multi-source loading: YAML file, environment variables (EMBEDPROXY_
    prefix by default), and defaults.
  - Validation: built-in sanity checks plus custom validators via
    WithValidator.
  - DatabaseConfig.DSN() builds the Postgres connection string used by
    the optional flight audit log.

# Example

	cfg, err := config.NewLoader().
		WithConfigPath("config.yaml").
		WithEnvPrefix("EMBEDPROXY").
		Load()
*/
package config

// Package config resolves process settings with viper.
//
// Sources, lowest precedence first: built-in defaults, an optional config
// file (YAML, JSON or TOML), environment variables, command-line flags.
// Every key is read from RAGBENCH_<KEY>; the keys that earlier deployments
// configured through OPENAI_API_KEY, EMBEDDING_MODEL, CHROMA_PERSIST_DIR,
// DATA_DIR and friends also honor those names.
//
// Validate must be called before any work starts.
package config

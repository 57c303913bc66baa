// Package auth provides authentication building blocks.
//
// Subpackages:
//
//   - auth/permission — per-plugin capability registry (least-privilege gate
//     for the coordinator's HTTP extension points)
//   - auth/password   — password hashing (bcrypt) and secure token
//     generation
//
// All packages follow the kit conventions: Config structs with
// ApplyDefaults()/Validate(), constructor functions, and mapstructure tags
// for config file loading.
package auth

// Package types provides core types shared across the chorus engine.
// This package has ZERO dependencies on other chorus packages to avoid
// circular imports. All other packages should import types from here.
package types

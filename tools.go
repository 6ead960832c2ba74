//go:build tools
// +build tools

// Package tools pins the code generators run through go generate (mockgen),
// so go.mod and go.sum track them.
package chatspace

import (
	_ "go.uber.org/mock/mockgen"
)

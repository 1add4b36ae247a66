// Package ksyinterp is the module's entry point: load a .ksy schema, then
// interpret bytes against it, without ever touching a filesystem.
//
// Basic usage:
//
//	node, err := ksyinterp.Parse(schemaYAML, data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	width, _ := node.GetNodeByID("width")
package ksyinterp

import (
	"context"
	"fmt"

	"github.com/kbinterp/ksyinterp/pkg/interpreter"
	"github.com/kbinterp/ksyinterp/pkg/kast"
	"github.com/kbinterp/ksyinterp/pkg/ksyyaml"
)

// Option configures how a schema is interpreted; an alias for
// interpreter.Option so interpreter.WithLogger and interpreter.WithRootType
// can be passed directly to Parse.
type Option = interpreter.Option

// Parse loads schemaYAML and interprets data against it in one call,
// returning the resulting AST rooted at a node with ID "root".
func Parse(schemaYAML []byte, data []byte, opts ...Option) (*kast.Node, error) {
	ks, err := ksyyaml.Load(schemaYAML)
	if err != nil {
		return nil, fmt.Errorf("ksyinterp: loading schema: %w", err)
	}
	in, err := interpreter.New(ks, opts...)
	if err != nil {
		return nil, fmt.Errorf("ksyinterp: %w", err)
	}
	return in.Parse(context.Background(), data)
}

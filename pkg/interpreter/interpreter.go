// Package interpreter walks a loaded pkg/schema model over a byte slice,
// producing a pkg/kast tree. It owns the only byte-level I/O in the module:
// schema loading and expression evaluation never touch a stream.
package interpreter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/kbinterp/ksyinterp/pkg/kast"
	"github.com/kbinterp/ksyinterp/pkg/kerr"
	"github.com/kbinterp/ksyinterp/pkg/kexpr"
	"github.com/kbinterp/ksyinterp/pkg/schema"
)

// Option configures an Interpreter.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	rootType string
}

// WithLogger sets the logger the interpreter reports read progress and
// coercion decisions to. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRootType overrides which entry of the schema's "types" map to parse
// as the document root; defaults to the schema's own top-level seq.
func WithRootType(name string) Option {
	return func(o *options) { o.rootType = name }
}

func defaultOptions() options {
	return options{logger: slog.Default()}
}

// Interpreter binds a loaded schema to the machinery needed to run it
// against concrete bytes: the shared expression cache and logger.
type Interpreter struct {
	schema *schema.KsyStruct
	exprs  *kexpr.Cache
	log    *slog.Logger
	opts   options
}

// New builds an Interpreter for ks. The expression cache is built once and
// reused across every Parse call, since most ksy schemas re-evaluate the
// same handful of expression sources for every repeated element.
func New(ks *schema.KsyStruct, opts ...Option) (*Interpreter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cache, err := kexpr.NewCache()
	if err != nil {
		return nil, fmt.Errorf("interpreter: building expression cache: %w", err)
	}
	return &Interpreter{schema: ks, exprs: cache, log: o.logger, opts: o}, nil
}

// Parse interprets data against the bound schema and returns the resulting
// AST. The returned tree's root node aggregates the top-level seq and every
// top-level instance.
func (in *Interpreter) Parse(ctx context.Context, data []byte) (*kast.Node, error) {
	root := in.schema.RootTypeSpec()
	if in.opts.rootType != "" {
		ts, ok := in.schema.Types[in.opts.rootType]
		if !ok {
			return nil, &kerr.UnknownType{Name: in.opts.rootType}
		}
		root = ts
	}

	stream := kaitai.NewStream(bytes.NewReader(data))
	rs := &runState{interp: in, raw: data}
	scope := newFieldScope(nil, nil, stream)

	rs.log().DebugContext(ctx, "starting parse", "root_type", in.schema.Meta.Identifier.String(), "input_len", len(data))
	node, err := rs.parseType(ctx, root, stream, scope, scope)
	if err != nil {
		return nil, err
	}
	node.ID = "root"
	rs.log().DebugContext(ctx, "finished parse", "root_type", in.schema.Meta.Identifier.String())
	return node, nil
}

// runState carries the per-Parse-call mutable context (the original bytes,
// needed to rebuild a fresh stream for pos-addressed instances) separate
// from the reusable Interpreter.
type runState struct {
	interp *Interpreter
	raw    []byte
}

func (rs *runState) log() *slog.Logger { return rs.interp.log }

// parseType reads one user type's seq and instances, given the stream its
// sequence should be read from and the scopes ("self" under construction,
// and the enclosing root) that its expressions resolve against.
func (rs *runState) parseType(ctx context.Context, spec *schema.TypeSpec, stream *kaitai.Stream, scope *fieldScope, root *fieldScope) (*kast.Node, error) {
	node := &kast.Node{NodeType: kast.TagArray}

	for i := range spec.Seq {
		attr := spec.Seq[i]
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rs.log().DebugContext(ctx, "reading field", "field_id", attr.ID.String(), "repeat", attr.Repeat)
		child, value, present, err := rs.readSeqAttribute(ctx, attr, spec, stream, scope, root)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", attr.ID.String(), err)
		}
		if !present {
			rs.log().DebugContext(ctx, "skipped field", "field_id", attr.ID.String(), "reason", "if condition false")
			continue
		}
		child.ID = attr.ID.String()
		node.AddChild(child)
		scope.set(attr.ID.String(), value)
	}

	names := make([]string, 0, len(spec.Instances))
	for name := range spec.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attr := spec.Instances[name]
		rs.log().DebugContext(ctx, "evaluating instance", "instance_name", name)
		child, value, present, err := rs.readInstance(ctx, name, attr, spec, stream, scope, root)
		if err != nil {
			return nil, fmt.Errorf("instance %q: %w", name, err)
		}
		if !present {
			rs.log().DebugContext(ctx, "skipped instance", "instance_name", name, "reason", "if condition false")
			continue
		}
		child.ID = name
		node.AddChild(child)
		scope.set(name, value)
	}

	return node, nil
}

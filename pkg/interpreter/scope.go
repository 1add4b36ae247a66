package interpreter

import (
	"github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"

	"github.com/kbinterp/ksyinterp/pkg/kexpr"
)

// fieldScope implements kexpr.Scope against the fields of one user-type
// instance as they are parsed, plus a back-link to its enclosing scope.
// There is no relationship to kast.Node: ancestry for expression evaluation
// lives entirely in this parse-time chain, never in the emitted tree.
type fieldScope struct {
	fields map[string]any
	self   any
	parent *fieldScope
	root   *fieldScope
	stream *kaitai.Stream
}

var _ kexpr.Scope = (*fieldScope)(nil)

func newFieldScope(parent, root *fieldScope, stream *kaitai.Stream) *fieldScope {
	s := &fieldScope{fields: make(map[string]any), parent: parent, stream: stream}
	if root == nil {
		s.root = s
	} else {
		s.root = root
	}
	return s
}

func (s *fieldScope) set(name string, value any) { s.fields[name] = value }

func (s *fieldScope) asMap() map[string]any { return s.fields }

func (s *fieldScope) Self() any { return s.self }

func (s *fieldScope) Parent() any {
	if s.parent == nil {
		return nil
	}
	return s.parent.asMap()
}

func (s *fieldScope) Root() any { return s.root.asMap() }

func (s *fieldScope) BytesRemaining() int64 {
	pos, _ := s.stream.Pos()
	size, _ := s.stream.Size()
	return size - pos
}

func (s *fieldScope) IOPos() int64 {
	pos, _ := s.stream.Pos()
	return pos
}

func (s *fieldScope) IOSize() int64 {
	size, _ := s.stream.Size()
	return size
}

func (s *fieldScope) IOEof() bool {
	eof, _ := s.stream.EOF()
	return eof
}

// Lookup walks from s outward through enclosing scopes, matching the
// GetNodeByID "first match wins" contract pkg/kast documents for the
// emitted tree: a bare identifier resolves to the nearest scope that
// defines it.
func (s *fieldScope) Lookup(name string) (any, bool) {
	if v, ok := s.fields[name]; ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.Lookup(name)
	}
	return nil, false
}

// eval evaluates src against scope, resolving free variables via Lookup
// and the special "_"/"_parent"/"_root"/"_io"/"_bytes_remaining" vars.
func (rs *runState) eval(src string, scope *fieldScope) (any, error) {
	return rs.interp.exprs.EvalScope(src, scope)
}

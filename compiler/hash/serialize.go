package hash

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/pasc/compiler"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the program AST.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (int64=8B)
//   - Floats: IEEE 754 big-endian 8B
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Lists: uint32 big-endian count, then each element
//   - Booleans: single byte (0/1)
//   - Child nodes: serialized inline (flat)
//
// Source positions are dropped, so edits to layout or comments leave the
// serialization unchanged. Serialize also lowercases identifiers;
// SerializeExact keeps their spelling. String literal contents are always
// kept verbatim.
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an AST node.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node compiler.Node) []byte {
	return serialize(node, true)
}

// SerializeExact is Serialize without identifier case folding.
func SerializeExact(node compiler.Node) []byte {
	return serialize(node, false)
}

func serialize(node compiler.Node, fold bool) []byte {
	s := &serializer{buf: make([]byte, 0, 256), fold: fold}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf  []byte
	fold bool
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeFloat64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeIdent(v string) {
	if s.fold {
		v = strings.ToLower(v)
	}
	s.writeString(v)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writeCount(n int) {
	s.writeUint32(uint32(n))
}

// optional writes node, or TagAbsent when it is nil.
func (s *serializer) optional(node compiler.Node) {
	if node == nil {
		s.writeByte(TagAbsent)
		return
	}
	s.serializeNode(node)
}

func (s *serializer) serializeNode(node compiler.Node) {
	switch n := node.(type) {
	case *compiler.Program:
		s.writeByte(TagProgram)
		s.writeIdent(n.Name)
		s.serializeDecls(n.Decls)
		s.serializeNode(n.Block)

	case *compiler.Block:
		s.writeByte(TagBlock)
		s.serializeStmts(n.Stmts)

	// Declarations

	case *compiler.VarDecl:
		s.writeByte(TagVarDecl)
		s.writeCount(len(n.Names))
		for _, name := range n.Names {
			s.writeIdent(name)
		}
		s.serializeNode(n.Type)

	case *compiler.ConstDecl:
		s.writeByte(TagConstDecl)
		s.writeIdent(n.Name)
		s.serializeNode(n.Value)

	case *compiler.ProcDecl:
		s.writeByte(TagProcDecl)
		s.writeIdent(n.Name)
		s.serializeParams(n.Params)
		s.serializeDecls(n.Decls)
		s.serializeNode(n.Block)

	case *compiler.FuncDecl:
		s.writeByte(TagFuncDecl)
		s.writeIdent(n.Name)
		s.serializeParams(n.Params)
		s.serializeNode(n.ReturnType)
		s.serializeDecls(n.Decls)
		s.serializeNode(n.Block)

	case *compiler.Param:
		s.writeByte(TagParam)
		s.writeIdent(n.Name)
		s.writeBool(n.IsVar)
		s.serializeNode(n.Type)

	// Types

	case *compiler.SimpleType:
		s.writeByte(TagSimpleType)
		s.writeIdent(n.Name)

	case *compiler.ArrayType:
		s.writeByte(TagArrayType)
		s.serializeNode(n.Index)
		s.serializeNode(n.Elem)

	case *compiler.RecordType:
		s.writeByte(TagRecordType)
		s.writeCount(len(n.Fields))
		for _, f := range n.Fields {
			s.serializeNode(f)
		}

	// Statements

	case *compiler.Assignment:
		s.writeByte(TagAssignment)
		s.serializeNode(n.Target)
		s.serializeNode(n.Value)

	case *compiler.IfStmt:
		s.writeByte(TagIf)
		s.serializeNode(n.Cond)
		s.serializeNode(n.Then)
		s.optional(n.Else)

	case *compiler.WhileStmt:
		s.writeByte(TagWhile)
		s.serializeNode(n.Cond)
		s.serializeNode(n.Body)

	case *compiler.ForStmt:
		s.writeByte(TagFor)
		s.writeIdent(n.Var)
		s.serializeNode(n.Start)
		s.serializeNode(n.End)
		s.writeBool(n.Downto)
		s.serializeNode(n.Body)

	case *compiler.RepeatStmt:
		s.writeByte(TagRepeat)
		s.serializeStmts(n.Stmts)
		s.serializeNode(n.Cond)

	case *compiler.CompoundStmt:
		s.writeByte(TagCompound)
		s.serializeStmts(n.Stmts)

	case *compiler.ProcCall:
		s.writeByte(TagProcCall)
		s.writeIdent(n.Name)
		s.serializeExprs(n.Args)

	case *compiler.WritelnStmt:
		s.writeByte(TagWriteln)
		s.serializeExprs(n.Args)

	case *compiler.WriteStmt:
		s.writeByte(TagWrite)
		s.serializeExprs(n.Args)

	case *compiler.ReadlnStmt:
		s.writeByte(TagReadln)
		s.writeCount(len(n.Vars))
		for _, v := range n.Vars {
			s.serializeNode(v)
		}

	// Expressions

	case *compiler.BinaryOp:
		s.writeByte(TagBinaryOp)
		s.writeString(n.Op)
		s.serializeNode(n.Left)
		s.serializeNode(n.Right)

	case *compiler.UnaryOp:
		s.writeByte(TagUnaryOp)
		s.writeString(n.Op)
		s.serializeNode(n.Operand)

	case *compiler.IntegerLiteral:
		s.writeByte(TagIntLiteral)
		s.writeInt64(n.Value)

	case *compiler.RealLiteral:
		s.writeByte(TagRealLiteral)
		s.writeFloat64(n.Value)

	case *compiler.StringLiteral:
		s.writeByte(TagStringLiteral)
		s.writeString(n.Value)

	case *compiler.BooleanLiteral:
		s.writeByte(TagBoolLiteral)
		s.writeBool(n.Value)

	case *compiler.Variable:
		s.writeByte(TagVariable)
		s.writeIdent(n.Name)
		s.optional(n.Index)
		s.writeIdent(n.Field)

	case *compiler.FunctionCall:
		s.writeByte(TagFunctionCall)
		s.writeIdent(n.Name)
		s.serializeExprs(n.Args)

	default:
		panic(fmt.Sprintf("hash: unhandled node type %T", node))
	}
}

func (s *serializer) serializeDecls(decls []compiler.Decl) {
	s.writeCount(len(decls))
	for _, d := range decls {
		s.serializeNode(d)
	}
}

func (s *serializer) serializeParams(params []*compiler.Param) {
	s.writeCount(len(params))
	for _, p := range params {
		s.serializeNode(p)
	}
}

func (s *serializer) serializeStmts(stmts []compiler.Stmt) {
	s.writeCount(len(stmts))
	for _, st := range stmts {
		s.serializeNode(st)
	}
}

func (s *serializer) serializeExprs(exprs []compiler.Expr) {
	s.writeCount(len(exprs))
	for _, e := range exprs {
		s.serializeNode(e)
	}
}

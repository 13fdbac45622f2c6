package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the fingerprint serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// every fingerprint already stored in a build cache.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing fingerprints.
const HashVersion byte = 1

// AST node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Program structure
	TagProgram byte = 0x01
	TagBlock   byte = 0x02

	// Marks an absent optional child (missing else branch, unindexed variable)
	TagAbsent byte = 0x0F

	// Declarations
	TagVarDecl   byte = 0x10
	TagConstDecl byte = 0x11
	TagProcDecl  byte = 0x12
	TagFuncDecl  byte = 0x13
	TagParam     byte = 0x14

	// Type specifications
	TagSimpleType byte = 0x20
	TagArrayType  byte = 0x21
	TagRecordType byte = 0x22

	// Statements
	TagAssignment byte = 0x30
	TagIf         byte = 0x31
	TagWhile      byte = 0x32
	TagFor        byte = 0x33
	TagRepeat     byte = 0x34
	TagCompound   byte = 0x35
	TagProcCall   byte = 0x36
	TagWriteln    byte = 0x37
	TagWrite      byte = 0x38
	TagReadln     byte = 0x39

	// Expressions
	TagBinaryOp      byte = 0x40
	TagUnaryOp       byte = 0x41
	TagIntLiteral    byte = 0x42
	TagRealLiteral   byte = 0x43
	TagStringLiteral byte = 0x44
	TagBoolLiteral   byte = 0x45
	TagVariable      byte = 0x46
	TagFunctionCall  byte = 0x47

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagProgram, TagBlock, TagAbsent,
	TagVarDecl, TagConstDecl, TagProcDecl, TagFuncDecl, TagParam,
	TagSimpleType, TagArrayType, TagRecordType,
	TagAssignment, TagIf, TagWhile, TagFor, TagRepeat, TagCompound,
	TagProcCall, TagWriteln, TagWrite, TagReadln,
	TagBinaryOp, TagUnaryOp, TagIntLiteral, TagRealLiteral, TagStringLiteral,
	TagBoolLiteral, TagVariable, TagFunctionCall,
}

package diag

// Container errors (CON001-099)
const (
	// CodeMalformedContainer indicates an invalid PE/CLI/metadata header
	CodeMalformedContainer Code = "CON001"
	// CodeTruncatedStream indicates a stream or table extends past the buffer
	CodeTruncatedStream Code = "CON002"
	// CodeUnsupportedVersion indicates an unsupported metadata version
	CodeUnsupportedVersion Code = "CON003"
	// CodeInvalidCodedIndex indicates a coded index with an invalid tag
	CodeInvalidCodedIndex Code = "CON004"
	// CodeRowOutOfRange indicates a row index past the table's row count
	CodeRowOutOfRange Code = "CON005"
	// CodeHeapOutOfRange indicates a heap offset past the heap's end
	CodeHeapOutOfRange Code = "CON006"
)

// Signature errors (SIG100-199)
const (
	// CodeTruncatedSignature indicates a signature blob ended prematurely
	CodeTruncatedSignature Code = "SIG101"
	// CodeUnknownElementType indicates an unrecognized element-type tag
	CodeUnknownElementType Code = "SIG102"
	// CodeBadSignatureKind indicates a blob whose leading byte does not
	// match the expected signature kind (method, field, type spec)
	CodeBadSignatureKind Code = "SIG103"
)

// Filter errors (FLT200-299)
const (
	// CodeBadFilterRule indicates a rule that could not be parsed
	CodeBadFilterRule Code = "FLT201"
	// CodeUnmatchedFilterRule indicates a rule naming a type absent from
	// every input file
	CodeUnmatchedFilterRule Code = "FLT202"
)

// Resolution errors (RES300-399)
const (
	// CodeUnresolvedReference indicates a type reference that no loaded
	// file defines and no external namespace covers
	CodeUnresolvedReference Code = "RES301"
	// CodeValueTypeCycle indicates a value type that directly or indirectly
	// contains a field of its own type
	CodeValueTypeCycle Code = "RES302"
)

// Emission errors (EMT400-499)
const (
	// CodeUnsupportedCategory indicates a type category the emitter does
	// not handle reached emission
	CodeUnsupportedCategory Code = "EMT401"
	// CodeEmitConflict indicates two types emitted to the same output slot
	CodeEmitConflict Code = "EMT402"
)

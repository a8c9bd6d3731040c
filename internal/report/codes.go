package report

// Code is a stable diagnostic code. Codes are grouped by prefix:
// L lexical, S syntax, T type, M module, P pattern, B borrow/ownership,
// F foreign-function, R runtime, I I/O, C codegen, G generic/internal.
type Code string

// Lexical errors.
const (
	L001InvalidCharacter   Code = "L001"
	L002UnterminatedString Code = "L002"
	L003InvalidNumber      Code = "L003"
	L004TooManyErrors      Code = "L004"
	L005InvalidEscape      Code = "L005"
	L006InvalidUnicode     Code = "L006"
	L007InvalidTemplate    Code = "L007"
)

// Syntax errors.
const (
	S001UnexpectedToken     Code = "S001"
	S002MissingToken        Code = "S002"
	S003InvalidExpression   Code = "S003"
	S004InvalidStatement    Code = "S004"
	S005InvalidAssignTarget Code = "S005"
	S006InvalidFunctionDecl Code = "S006"
	S007InvalidClassDecl    Code = "S007"
	S008InvalidImport       Code = "S008"
	S009InvalidMatch        Code = "S009"
	S010InvalidTryCatch     Code = "S010"
	S011InvalidLoop         Code = "S011"
	S013InvalidEnumDecl     Code = "S013"
	S014InvalidStructDecl   Code = "S014"
	S016InvalidTraitDecl    Code = "S016"
	S017InvalidImplBlock    Code = "S017"
	S018InvalidModuleDecl   Code = "S018"
	S020InvalidDefer        Code = "S020"
	S021TooManyErrors       Code = "S021"
)

// Type errors.
const (
	T001TypeMismatch      Code = "T001"
	T002UndefinedVariable Code = "T002"
	T003UndefinedFunction Code = "T003"
	T004UndefinedType     Code = "T004"
	T005UndefinedMember   Code = "T005"
	T006InvalidOperator   Code = "T006"
	T007ArgumentCount     Code = "T007"
	T008InvalidMethodCall Code = "T008"
	T009UntypedLiteral    Code = "T009"
	T011InvalidCast       Code = "T011"
	T013InvalidAssignment Code = "T013"
	T014InvalidReturn     Code = "T014"
	T016InvalidGeneric    Code = "T016"
	T017TraitUnsatisfied  Code = "T017"
	T019InvalidInherit    Code = "T019"
	T026AwaitOutsideAsync Code = "T026"
	T027NullableDeref     Code = "T027"
)

// Module errors.
const (
	M001DuplicateDefinition Code = "M001"
	M002CircularDependency  Code = "M002"
	M004ModuleNotFound      Code = "M004"
	M009InvalidImportPath   Code = "M009"
	M010InvalidExport       Code = "M010"
)

// Pattern-match errors.
const (
	P001NonExhaustiveMatch Code = "P001"
	P002UnreachableArm     Code = "P002"
)

// Borrow/ownership errors.
const (
	B001UseAfterMove       Code = "B001"
	B002BorrowConflict     Code = "B002"
	B003MutateWhileBorrow  Code = "B003"
	B004MoveWhileBorrowed  Code = "B004"
	B005ImmutableMutation  Code = "B005"
	B006InvalidMoveSource  Code = "B006"
	B007DoubleMutableBorrow Code = "B007"
)

// Codegen and internal errors.
const (
	C002LoweringFailed Code = "C002"
	G001Internal       Code = "G001"
	I001ReadFailed     Code = "I001"
)

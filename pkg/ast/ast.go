// Package ast defines the Cobral language AST node types.
package ast

import "fmt"

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpMod  BinaryOp = "%"
	OpGt   BinaryOp = ">"
	OpLt   BinaryOp = "<"
	OpGtEq BinaryOp = ">="
	OpLtEq BinaryOp = "<="
	OpEqEq BinaryOp = "=="
	OpNeq  BinaryOp = "!="
	OpAnd  BinaryOp = "e"
	OpOr   BinaryOp = "ou"
)

// IsArithmetic reports whether op is one of + - * / %.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsComparison reports whether op is an equality or relational operator.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpGt, OpLt, OpGtEq, OpLtEq, OpEqEq, OpNeq:
		return true
	}
	return false
}

// IsLogical reports whether op is e or ou.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpPos UnaryOp = "+"
	OpNot UnaryOp = "nao"
)

// StepOp is an increment or decrement.
type StepOp string

const (
	OpInc StepOp = "++"
	OpDec StepOp = "--"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}

type FloatLiteral struct {
	Span  Span
	Value float64
}

func (n *FloatLiteral) Kind() string   { return "FloatLiteral" }
func (n *FloatLiteral) NodeSpan() Span { return n.Span }
func (n *FloatLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}

// --- Identifiers ---

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

// --- Collections ---

type ListExpr struct {
	Span     Span
	Elements []Expr
}

func (n *ListExpr) Kind() string   { return "ListExpr" }
func (n *ListExpr) NodeSpan() Span { return n.Span }
func (n *ListExpr) exprNode()      {}

// IndexExpr reads one element of the list bound to Name.
type IndexExpr struct {
	Span  Span
	Name  string
	Index Expr
}

func (n *IndexExpr) Kind() string   { return "IndexExpr" }
func (n *IndexExpr) NodeSpan() Span { return n.Span }
func (n *IndexExpr) exprNode()      {}

// --- Operators ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

// StepExpr is a prefix or postfix ++/-- applied to a variable.
type StepExpr struct {
	Span    Span
	Op      StepOp
	Prefix  bool
	Operand Expr
}

func (n *StepExpr) Kind() string   { return "StepExpr" }
func (n *StepExpr) NodeSpan() Span { return n.Span }
func (n *StepExpr) exprNode()      {}

// --- Calls ---

type CallExpr struct {
	Span Span
	Name string
	Args []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

// --- Statements ---

type LetStmt struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *LetStmt) Kind() string   { return "LetStmt" }
func (n *LetStmt) NodeSpan() Span { return n.Span }
func (n *LetStmt) stmtNode()      {}

type ConstStmt struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *ConstStmt) Kind() string   { return "ConstStmt" }
func (n *ConstStmt) NodeSpan() Span { return n.Span }
func (n *ConstStmt) stmtNode()      {}

// AssignStmt is `name = value` or, when Index is set, `name[index] = value`.
type AssignStmt struct {
	Span  Span
	Name  string
	Index Expr
	Value Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

type Block struct {
	Span       Span
	Statements []Stmt
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }

type ElseIf struct {
	Span Span
	Cond Expr
	Body *Block
}

func (n *ElseIf) Kind() string   { return "ElseIf" }
func (n *ElseIf) NodeSpan() Span { return n.Span }

type IfStmt struct {
	Span    Span
	Cond    Expr
	Then    *Block
	ElseIfs []*ElseIf
	Else    *Block
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type WhileStmt struct {
	Span Span
	Cond Expr
	Body *Block
}

func (n *WhileStmt) Kind() string   { return "WhileStmt" }
func (n *WhileStmt) NodeSpan() Span { return n.Span }
func (n *WhileStmt) stmtNode()      {}

// ForStmt is `para(init; cond; update) { body }`. Update is an AssignStmt,
// LetStmt or ExprStmt wrapping a StepExpr.
type ForStmt struct {
	Span   Span
	Init   *LetStmt
	Cond   Expr
	Update Stmt
	Body   *Block
}

func (n *ForStmt) Kind() string   { return "ForStmt" }
func (n *ForStmt) NodeSpan() Span { return n.Span }
func (n *ForStmt) stmtNode()      {}

// CaseClause is one `caso value:` arm, or the `padrao:` arm when Value is nil.
type CaseClause struct {
	Span  Span
	Value Expr
	Body  []Stmt
	Break bool
}

func (n *CaseClause) Kind() string   { return "CaseClause" }
func (n *CaseClause) NodeSpan() Span { return n.Span }

type SwitchStmt struct {
	Span    Span
	Subject Expr
	Cases   []*CaseClause
	Default *CaseClause
}

func (n *SwitchStmt) Kind() string   { return "SwitchStmt" }
func (n *SwitchStmt) NodeSpan() Span { return n.Span }
func (n *SwitchStmt) stmtNode()      {}

type FnDecl struct {
	Span   Span
	Name   string
	Params []string
	Body   *Block
}

func (n *FnDecl) Kind() string   { return "FnDecl" }
func (n *FnDecl) NodeSpan() Span { return n.Span }
func (n *FnDecl) stmtNode()      {}

// ReturnStmt has a nil Value for a bare `retorne`.
type ReturnStmt struct {
	Span  Span
	Value Expr
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

type ImportStmt struct {
	Span Span
	Path string

	// Resolved is the file path for file imports; empty for libraries.
	Resolved string
}

func (n *ImportStmt) Kind() string   { return "ImportStmt" }
func (n *ImportStmt) NodeSpan() Span { return n.Span }
func (n *ImportStmt) stmtNode()      {}

// --- Program ---

type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }

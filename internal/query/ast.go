package query

import "github.com/starford/ansuz/internal/query/vals"

// Kind selects the query's output shape.
type Kind int

const (
	KindList Kind = iota
	KindTable
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "TABLE"
	case KindTask:
		return "TASK"
	default:
		return "LIST"
	}
}

// MarshalJSON renders the kind as its keyword.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Query is a parsed query: an output type plus its clauses in written order.
type Query struct {
	Kind      Kind
	WithoutID bool  // TABLE WITHOUT ID
	Cols      []Col // TABLE columns
	ListExpr  Expr  // optional LIST value expression
	Clauses   []Clause
}

// Col is one TABLE column: an expression and its header name.
type Col struct {
	Expr Expr
	Name string
}

// Clause is one pipeline step. Clauses apply in the order written and may
// each appear multiple times.
type Clause interface{ clauseNode() }

// FromClause filters rows by a source expression.
type FromClause struct{ Src Source }

// WhereClause keeps rows whose condition is truthy.
type WhereClause struct{ Cond Expr }

// SortClause orders rows by one or more keys.
type SortClause struct{ Keys []SortKey }

// SortKey is one sort expression with its direction.
type SortKey struct {
	Expr Expr
	Desc bool
}

// GroupClause collapses rows into one row per distinct key.
type GroupClause struct {
	Expr Expr
	Name string // AS alias, empty for default "key"
}

// FlattenClause expands list values into one row per element.
type FlattenClause struct {
	Expr Expr
	Name string // binding name for the element
}

// LimitClause truncates the row set.
type LimitClause struct{ N int }

func (FromClause) clauseNode()    {}
func (WhereClause) clauseNode()   {}
func (SortClause) clauseNode()    {}
func (GroupClause) clauseNode()   {}
func (FlattenClause) clauseNode() {}
func (LimitClause) clauseNode()   {}

// Source is a FROM filter: folders, tags, links, and boolean combinations.
type Source interface{ sourceNode() }

// SrcFolder matches notes under a folder prefix. An empty prefix matches all.
type SrcFolder struct{ Prefix string }

// SrcTag matches notes carrying a tag; #a also matches nested #a/b.
type SrcTag struct{ Tag string }

// SrcLink matches notes whose outgoing links resolve to the target.
type SrcLink struct{ Target string }

// SrcNot negates a source.
type SrcNot struct{ X Source }

// SrcAnd matches notes matched by both sources.
type SrcAnd struct{ X, Y Source }

// SrcOr matches notes matched by either source.
type SrcOr struct{ X, Y Source }

func (SrcFolder) sourceNode() {}
func (SrcTag) sourceNode()    {}
func (SrcLink) sourceNode()   {}
func (SrcNot) sourceNode()    {}
func (SrcAnd) sourceNode()    {}
func (SrcOr) sourceNode()     {}

// Expr is an expression AST node.
type Expr interface {
	exprNode()
	Pos() int
}

// Lit is a literal value.
type Lit struct {
	Val vals.Value
	At  int
}

// Ident is a field reference resolved against the current row.
type Ident struct {
	Name string
	At   int
}

// Field is postfix member access: x.name.
type Field struct {
	X    Expr
	Name string
	At   int
}

// Index is postfix indexing: x[i].
type Index struct {
	X, I Expr
	At   int
}

// ListExpr is a list literal: [a, b, c].
type ListExpr struct {
	Elems []Expr
	At    int
}

// Unary is prefix negation: !x or -x.
type Unary struct {
	Op string
	X  Expr
	At int
}

// Binary is a binary operation. Op is one of: or, and, =, !=, <, <=, >, >=,
// +, -, *, /, %.
type Binary struct {
	Op   string
	X, Y Expr
	At   int
}

// Call is a function invocation. Name is lowercased; unknown names are
// rejected at parse time.
type Call struct {
	Name string
	Args []Expr
	At   int
}

func (Lit) exprNode()      {}
func (Ident) exprNode()    {}
func (Field) exprNode()    {}
func (Index) exprNode()    {}
func (ListExpr) exprNode() {}
func (Unary) exprNode()    {}
func (Binary) exprNode()   {}
func (Call) exprNode()     {}

func (e Lit) Pos() int      { return e.At }
func (e Ident) Pos() int    { return e.At }
func (e Field) Pos() int    { return e.At }
func (e Index) Pos() int    { return e.At }
func (e ListExpr) Pos() int { return e.At }
func (e Unary) Pos() int    { return e.At }
func (e Binary) Pos() int   { return e.At }
func (e Call) Pos() int     { return e.At }

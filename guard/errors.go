package guard

import "fmt"

// Kind discriminates the specific rule a candidate statement violated.
type Kind string

const (
	KindMultiStatement  Kind = "MultiStatement"
	KindNotReadOnly     Kind = "NotReadOnly"
	KindCommentNotAllow Kind = "CommentNotAllowed"
	KindSystemSchema    Kind = "SystemSchema"
	KindTableNotAllowed Kind = "TableNotAllowed"
	KindColumnNotAllow  Kind = "ColumnNotAllowed"
	KindEmptyStatement  Kind = "EmptyStatement"
)

// Error is the typed rejection a candidate statement failed with. The
// offending SQL is attached so callers can surface it to clients/logs for
// debugging without having to re-thread it through every call site.
type Error struct {
	Kind   Kind
	Detail string // e.g. the offending table/column name, or the forbidden keyword
	SQL    string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("guard: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("guard: %s", e.Kind)
}

func newErr(kind Kind, detail, sql string) *Error {
	return &Error{Kind: kind, Detail: detail, SQL: sql}
}

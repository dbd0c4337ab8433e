package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type ErrorClass int

const (
	ErrorClassOther ErrorClass = iota
	ErrorClassUniqueViolation
	ErrorClassForeignKeyViolation
)

func ClassifyError(err error) ErrorClass {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return ErrorClassOther
	}

	switch pqErr.Code {
	case codeUniqueViolation:
		return ErrorClassUniqueViolation
	case codeForeignKeyViolation:
		return ErrorClassForeignKeyViolation
	}
	return ErrorClassOther
}

func IsUniqueViolation(err error) bool {
	return ClassifyError(err) == ErrorClassUniqueViolation
}

// ViolatedColumn guesses the column behind a constraint violation from the
// constraint name, which follows the <table>_<column>_key convention.
func ViolatedColumn(err error) string {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Constraint == "" {
		return ""
	}

	name := strings.TrimSuffix(pqErr.Constraint, "_key")
	if pqErr.Table != "" {
		name = strings.TrimPrefix(name, pqErr.Table+"_")
	}
	return name
}

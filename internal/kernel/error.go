package kernel

import "fmt"

// Kind identifies the reason a check failed.
type Kind uint16

// Stable error codes - do not change values.
const (
	KindInvalidUnifyCommandIndex Kind = 1001 // K1001: unify range out of bounds
	KindInvalidBinderIndices     Kind = 1002 // K1002: binder range out of bounds
	KindInvalidTerm              Kind = 1003 // K1003: unknown or not yet declared term
	KindInvalidTheorem           Kind = 1004 // K1004: unknown or not yet declared theorem
	KindInvalidSort              Kind = 1005 // K1005: unknown or not yet declared sort
	KindProofStackUnderflow      Kind = 1006 // K1006: pop from empty proof stack
	KindInvalidHeapIndex         Kind = 1007 // K1007: heap reference out of bounds
	KindUnifyStackUnderflow      Kind = 1008 // K1008: pop from empty unify stack
	KindStackType                Kind = 1009 // K1009: stack cell has the wrong kind
	KindSortMismatch             Kind = 1010 // K1010: expression has the wrong sort
	KindBoundExpected            Kind = 1011 // K1011: bound variable expected
	KindDepsViolation            Kind = 1012 // K1012: disjoint variable condition violated
	KindTooManyBoundVars         Kind = 1013 // K1013: more than MaxBoundVars bound variables
	KindStrictSort               Kind = 1014 // K1014: bound variable of a strict sort
	KindFreeSort                 Kind = 1015 // K1015: dependency on a free sort variable
	KindPureSort                 Kind = 1016 // K1016: term constructor in a pure sort
	KindNotProvable              Kind = 1017 // K1017: hypothesis in a non-provable sort
	KindUnifyTermMismatch        Kind = 1018 // K1018: unify expected a different term head
	KindUnifyRefMismatch         Kind = 1019 // K1019: unify reference does not match
	KindDummyNotAllowed          Kind = 1020 // K1020: dummy outside of a definition
	KindHypNotAllowed            Kind = 1021 // K1021: hypothesis in the wrong context
	KindHypMismatch              Kind = 1022 // K1022: hypotheses left over or missing
	KindConvMismatch             Kind = 1023 // K1023: conversion obligation not met
	KindNotDefinition            Kind = 1024 // K1024: unfold of a term without a definition
	KindSorry                    Kind = 1025 // K1025: sorry is disabled
	KindStackShape               Kind = 1026 // K1026: proof ended with an unexpected stack
	KindUnifyStackNotEmpty       Kind = 1027 // K1027: unify ended with pending goals
	KindCommandNotAllowed        Kind = 1028 // K1028: proof command not allowed here
	KindMalformedUnify           Kind = 1029 // K1029: unify stream does not compile to a proof
)

var kindMessages = map[Kind]string{
	KindInvalidUnifyCommandIndex: "invalid unify command index",
	KindInvalidBinderIndices:     "invalid binder indices",
	KindInvalidTerm:              "invalid term",
	KindInvalidTheorem:           "invalid theorem",
	KindInvalidSort:              "invalid sort",
	KindProofStackUnderflow:      "proof stack underflow",
	KindInvalidHeapIndex:         "invalid heap index",
	KindUnifyStackUnderflow:      "unify stack underflow",
	KindStackType:                "unexpected stack cell",
	KindSortMismatch:             "sort mismatch",
	KindBoundExpected:            "bound variable expected",
	KindDepsViolation:            "disjoint variable violation",
	KindTooManyBoundVars:         "too many bound variables",
	KindStrictSort:               "bound variable in strict sort",
	KindFreeSort:                 "dependency in free sort",
	KindPureSort:                 "term constructor in pure sort",
	KindNotProvable:              "sort is not provable",
	KindUnifyTermMismatch:        "unify term mismatch",
	KindUnifyRefMismatch:         "unify reference mismatch",
	KindDummyNotAllowed:          "dummy not allowed",
	KindHypNotAllowed:            "hypothesis not allowed",
	KindHypMismatch:              "hypothesis mismatch",
	KindConvMismatch:             "conversion mismatch",
	KindNotDefinition:            "not a definition",
	KindSorry:                    "sorry not allowed",
	KindStackShape:               "bad stack at end of proof",
	KindUnifyStackNotEmpty:       "unify stack not empty",
	KindCommandNotAllowed:        "command not allowed",
	KindMalformedUnify:           "malformed unify stream",
}

// Code returns the kind as "K1001".
func (k Kind) Code() string { return fmt.Sprintf("K%d", uint16(k)) }

func (k Kind) String() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "unknown error"
}

// Error lets a bare Kind act as an errors.Is target.
func (k Kind) Error() string { return k.Code() + ": " + k.String() }

// Error is a failed check reported by the kernel.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s", e.Kind.Code(), e.Kind.String())
	}
	return fmt.Sprintf("%s %s: %s", e.Kind.Code(), e.Kind.String(), e.Detail)
}

// Is matches against a Kind so callers can write errors.Is(err, KindInvalidTerm).
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func fail(kind Kind) *Error { return &Error{Kind: kind} }

func failf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

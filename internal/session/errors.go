package session

import "errors"

// Configuration errors are fatal to session start: the session is never
// created and the caller reports "cannot load exam". Everything else in
// this package recovers locally and stays invisible to the candidate.
var (
	ErrInvalidDefinition = errors.New("invalid exam definition")
	ErrNoQuestions       = errors.New("exam has no resolvable questions")
	ErrIndexOutOfRange   = errors.New("question index out of range")
	ErrUnknownQuestion   = errors.New("question is not part of this exam")
	ErrAlreadySubmitted  = errors.New("session is already submitted")
)

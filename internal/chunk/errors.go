package chunk

import "github.com/ntmck/lj-decompiler/internal/ljerrors"

func invariantf(format string, args ...interface{}) *ljerrors.DecodeError {
	return ljerrors.Invariant(ljerrors.Context{}, format, args...)
}

func malformedf(format string, args ...interface{}) *ljerrors.DecodeError {
	return ljerrors.Malformed(ljerrors.Context{}, format, args...)
}

package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "account not found"}
		s.Equal("account not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeRateExceeded}
		s.Equal("rate_exceeded", err.Error())
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	s.Run("wrapping a domain error keeps the original code", func() {
		inner := New(CodeLimitExceeded, "daily limit exceeded")
		wrapped := Wrap(inner, CodeInternal, "limit check failed")
		s.True(HasCode(wrapped, CodeLimitExceeded))
		s.False(HasCode(wrapped, CodeInternal))
	})

	s.Run("wrapping a plain error applies the new code", func() {
		inner := errors.New("connection refused")
		wrapped := Wrap(inner, CodeInfrastructure, "store unreachable")
		s.True(HasCode(wrapped, CodeInfrastructure))
		s.Equal(inner, errors.Unwrap(wrapped))
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeOTPExpired, Message: "code has expired"}
		err2 := &Error{Code: CodeOTPExpired, Message: "different message"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeOTPExpired}
		err2 := &Error{Code: CodeOTPInvalid}
		s.False(err1.Is(err2))
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Run("extracts code from domain error", func() {
		s.Equal(CodeVelocityExceeded, CodeOf(New(CodeVelocityExceeded, "slow down")))
	})

	s.Run("defaults to internal for plain errors", func() {
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})

	s.Run("sees through wrapping", func() {
		err := Wrap(New(CodeOTPAttemptsExhausted, "too many attempts"), CodeInternal, "verify failed")
		s.Equal(CodeOTPAttemptsExhausted, CodeOf(err))
	})
}

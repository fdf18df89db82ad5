package testfixtures

import (
	"fmt"
	"sync"
)

// TokenSequence hands out predictable session tokens in place of
// application.GenerateToken.
type TokenSequence struct {
	mu     sync.Mutex
	prefix string
	issued []string
}

// NewTokenSequence returns a sequence producing "<prefix>-1", "<prefix>-2"
// and so on. An empty prefix becomes "token".
func NewTokenSequence(prefix string) *TokenSequence {
	if prefix == "" {
		prefix = "token"
	}
	return &TokenSequence{prefix: prefix}
}

// Next issues the next token.
func (s *TokenSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := fmt.Sprintf("%s-%d", s.prefix, len(s.issued)+1)
	s.issued = append(s.issued, token)
	return token
}

// Issued returns every token handed out so far.
func (s *TokenSequence) Issued() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.issued...)
}

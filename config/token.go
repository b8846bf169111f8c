package config

// TokenSource supplies the current CSRF token value. The token is resolved at
// the point of use, never cached, so rotating tokens are always current.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed CSRF token value.
type StaticToken string

// Token returns the static value.
func (t StaticToken) Token() string {
	return string(t)
}

// TokenSourceFunc adapts a producer function to a TokenSource.
type TokenSourceFunc func() string

// Token invokes the producer.
func (f TokenSourceFunc) Token() string {
	return f()
}

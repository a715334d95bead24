package ai

import (
	"context"
	"strings"
)

// StreamProvider is an optional interface. Providers may implement streaming chat.
//
// Implementations send at most one error, and do so before closing either
// channel; errs is closed before chunks.
type StreamProvider interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan string, <-chan error)
}

// Fold drains a token stream exactly once, calling onToken for every chunk in
// arrival order, and returns the joined text. On a stream or context error the
// text received so far is returned together with the error.
func Fold(ctx context.Context, chunks <-chan string, errs <-chan error, onToken func(string)) (string, error) {
	var b strings.Builder
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				select {
				case err := <-errs:
					if err != nil {
						return b.String(), err
					}
				default:
				}
				return b.String(), nil
			}
			b.WriteString(c)
			if onToken != nil {
				onToken(c)
			}
		case <-ctx.Done():
			return b.String(), ctx.Err()
		}
	}
}

package llm

import (
	"context"
	"fmt"
	"net/http"
)

// FirstChoice safely returns the first choice from a ChatResponse.
// Returns an error if the response is nil or has no choices.
func FirstChoice(resp *ChatResponse) (ChatChoice, error) {
	if resp == nil {
		return ChatChoice{}, &Error{Code: ErrEmptyResponse, Message: "nil ChatResponse", HTTPStatus: http.StatusBadGateway}
	}
	if len(resp.Choices) == 0 {
		return ChatChoice{}, &Error{
			Code:       ErrEmptyResponse,
			Message:    fmt.Sprintf("empty choices in ChatResponse from %s (model returned no choices)", resp.Provider),
			HTTPStatus: http.StatusBadGateway,
			Provider:   resp.Provider,
		}
	}
	return resp.Choices[0], nil
}

// Invoke runs one completion under req.Timeout and returns the text of the first choice.
// The timeout applies to this call only; it does not cancel sibling calls sharing ctx.
func Invoke(ctx context.Context, p Provider, req *ChatRequest) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	resp, err := p.Completion(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &Error{
				Code:       ErrUpstreamTimeout,
				Message:    fmt.Sprintf("%s timed out after %s: %v", req.Name, req.Timeout, err),
				HTTPStatus: http.StatusGatewayTimeout,
				Retryable:  true,
				Provider:   p.Name(),
			}
		}
		return "", err
	}
	choice, err := FirstChoice(resp)
	if err != nil {
		return "", err
	}
	return choice.Message.Content, nil
}

// UserPrompt wraps a single prompt as the only message of a request.
func UserPrompt(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}

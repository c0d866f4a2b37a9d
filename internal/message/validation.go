package message

import (
	"fmt"
	"strings"

	"github.com/samarthnaikk/ychat20/internal/constants"
)

// ValidationError reports a chat frame field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateChat checks the preconditions of a chat frame sent by senderID.
// Returns the trimmed content on success. Each violation yields a distinct
// validation error; none of them changes session state.
func (f *Frame) ValidateChat(senderID int64) (string, *ValidationError) {
	content := SanitizeContent(f.Content)

	if f.ReceiverID <= 0 || content == "" {
		return "", &ValidationError{
			Field:   "receiver_id",
			Message: "receiver_id and content are required",
		}
	}

	if f.ReceiverID == senderID {
		return "", &ValidationError{
			Field:   "receiver_id",
			Message: "Cannot send message to yourself",
		}
	}

	if len(content) > constants.MaxContentLength {
		return "", &ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("content exceeds maximum length of %d characters", constants.MaxContentLength),
		}
	}

	return content, nil
}

// SanitizeContent strips null bytes and surrounding whitespace from chat text.
func SanitizeContent(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

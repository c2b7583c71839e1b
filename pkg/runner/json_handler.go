package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// JSONHandler speaks newline-delimited JSON for scripted clients: every turn is written
// as one Reply object per line, and every input line is one message.
type JSONHandler struct {
	lines *bufio.Scanner
	enc   *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONHandler{lines: lines, enc: json.NewEncoder(w)}
}

func (h *JSONHandler) Output(ctx context.Context, reply *Reply) error {
	return h.enc.Encode(reply)
}

// Input returns the next non-blank line. A line may be a JSON string ("Ada"), an
// object with a "text" field, or raw text.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !h.lines.Scan() {
			if err := h.lines.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		if line := strings.TrimSpace(h.lines.Text()); line != "" {
			return decodeMessage(line), nil
		}
	}
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.enc.Encode(map[string]string{"system": msg})
}

func decodeMessage(line string) string {
	var text string
	if err := json.Unmarshal([]byte(line), &text); err == nil {
		return text
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(line), &obj); err == nil && obj.Text != "" {
		return obj.Text
	}
	return line
}

package bedrock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when generated text contains no recognisable
// JSON object.
var ErrNoJSONObject = errors.New("no JSON object found in model response")

// chatResponse covers the response shapes the generation backend may return:
// the structured converse-style shape plus the legacy flat-body fields.
type chatResponse struct {
	Output struct {
		Message struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
	} `json:"output"`
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Generation string `json:"generation"`
	OutputText string `json:"output_text"`
	Text       string `json:"text"`
}

// chatExtractors is the ordered sequence of extraction strategies. Each is
// tried until one yields non-empty text; the structured path comes first,
// then the legacy flat-body fields in fixed priority order.
var chatExtractors = []func(*chatResponse) string{
	func(r *chatResponse) string {
		if len(r.Output.Message.Content) > 0 {
			return r.Output.Message.Content[0].Text
		}
		return ""
	},
	func(r *chatResponse) string {
		if len(r.Content) > 0 {
			return r.Content[0].Text
		}
		return ""
	},
	func(r *chatResponse) string { return r.Generation },
	func(r *chatResponse) string { return r.OutputText },
	func(r *chatResponse) string { return r.Text },
}

// ExtractChatText extracts the generated text from a raw chat response body.
// A body that decodes but yields no text returns the empty string without
// error; an undecodable body is an error.
func ExtractChatText(body []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("bedrock response unmarshal: %w", err)
	}

	for _, extract := range chatExtractors {
		if text := strings.TrimSpace(extract(&resp)); text != "" {
			return text, nil
		}
	}
	return "", nil
}

// ExtractJSONObject treats the substring between the first '{' and the last
// '}' of s (inclusive) as a JSON document. This tolerates surrounding
// commentary or code-fence markers the model may emit.
func ExtractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}

package llamaserver

import (
	openai "github.com/danilofalcao/llama-gateway/internal/api/openai/v1"
	"github.com/danilofalcao/llama-gateway/internal/backend"
)

func convertMessages(messages []backend.Message) []openai.Message {
	converted := make([]openai.Message, len(messages))
	for i, message := range messages {
		converted[i] = openai.Message{Role: message.Role, Content: message.Content}
		if len(message.Images) == 0 {
			continue
		}
		parts := make([]openai.ContentPart, 0, len(message.Images)+1)
		parts = append(parts, openai.ContentPart{Type: openai.ContentPartText, Text: message.Content})
		for _, img := range message.Images {
			parts = append(parts, openai.ContentPart{
				Type:     openai.ContentPartImage,
				ImageURL: &openai.ImageURL{URL: dataURL(img.Data)},
			})
		}
		converted[i].Content = parts
	}
	return converted
}

package ollama

import (
	"github.com/danilofalcao/llama-gateway/internal/backend"
	"github.com/ollama/ollama/api"
)

func convertMessages(messages []backend.Message) []api.Message {
	converted := make([]api.Message, len(messages))
	for i, message := range messages {
		converted[i] = api.Message{
			Role:    message.Role,
			Content: message.Content,
		}
		for _, img := range message.Images {
			converted[i].Images = append(converted[i].Images, api.ImageData(img.Data))
		}
	}
	return converted
}

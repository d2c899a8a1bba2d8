package llm

// Provider names accepted by the client factory.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderMistral   = "mistral"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// MistralBaseURL is the OpenAI-compatible Mistral endpoint used when the
// mistral provider is selected without an explicit base URL.
const MistralBaseURL = "https://api.mistral.ai/v1"

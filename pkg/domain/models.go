package domain

type Model struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// SupportedModels is the static model catalog exposed by the API. Whether a
// given model actually resolves to the hosted provider, the local backend or
// the rule-based fallback is decided by the engine at request time.
var SupportedModels = []Model{
	{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Provider: "OpenAI"},
	{ID: "gpt-4", Name: "GPT-4", Provider: "OpenAI"},
	{ID: "local-llama", Name: "Local LLaMA", Provider: "Hugging Face"},
	{ID: "local-mistral", Name: "Local Mistral", Provider: "Hugging Face"},
}

const DefaultModel = "gpt-3.5-turbo"

package models

const (
	GPT4Turbo         = "gpt-4-1106-preview"
	GPT4              = "gpt-4"
	GPT3Dot5Turbo     = "gpt-3.5-turbo"
	GPT3Dot5Turbo0125 = "gpt-3.5-turbo-0125"
	DefaultModel      = GPT3Dot5Turbo0125

	// Bedrock model identifiers understood by internal/bedrock.
	BedrockClaude3Haiku  = "anthropic.claude-3-haiku-20240307-v1:0"
	BedrockClaude3Sonnet = "anthropic.claude-3-sonnet-20240229-v1:0"
	DefaultBedrockModel  = BedrockClaude3Haiku
)

package llm

import "unicode/utf8"

const (
	// TokenEstimateRatio estimates ~4 characters per token.
	TokenEstimateRatio = 4

	// MessageOverheadTokens approximates role and framing per message.
	MessageOverheadTokens = 4
)

// EstimateTokenCount gives a rough token count for text.
func EstimateTokenCount(text string) int {
	return utf8.RuneCountInString(text) / TokenEstimateRatio
}

// EstimateMessageTokens is the estimate for one message including overhead.
func EstimateMessageTokens(content string) int {
	return MessageOverheadTokens + EstimateTokenCount(content)
}

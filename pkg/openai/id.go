package openai

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	chatIDPrefix = "chatcmpl-"
	chatIDLength = 24
	chatCharset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewChatCompletionID generates a chat completion ID with the "chatcmpl-"
// prefix followed by 24 cryptographically random alphanumeric characters.
func NewChatCompletionID() string {
	max := big.NewInt(int64(len(chatCharset)))
	b := make([]byte, chatIDLength)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = chatCharset[idx.Int64()]
	}
	return chatIDPrefix + string(b)
}

// chatCompletionIDFrom derives a chat completion ID from a messages ID so
// both dialects share the same identifier tail: "msg_X" becomes
// "chatcmpl-X". IDs already in chat form pass through; an empty ID yields
// a fresh one.
func chatCompletionIDFrom(id string) string {
	if id == "" {
		return NewChatCompletionID()
	}
	if strings.HasPrefix(id, chatIDPrefix) {
		return id
	}
	if rest, ok := strings.CutPrefix(id, "msg_"); ok {
		return chatIDPrefix + rest
	}
	return chatIDPrefix + id
}

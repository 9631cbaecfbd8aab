package orchestratornode

import (
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const (
	VoiceDelimiter = "|||VOICE|||"
	fallbackVoice  = "I've completed your request."
)

var (
	markupPattern     = regexp.MustCompile("\\*\\*|`|#|>|---")
	whitespacePattern = regexp.MustCompile(`\s+`)
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var reply contractx.Reply
	if in.Terminal != nil {
		reply = *in.Terminal
	} else {
		reply.Rich, reply.Voice = ParseVoice(in.Content)
		reply.AgentLog = strings.Join(in.AgentLog, "\n")
	}
	reply.UserGUID = in.Session.Identity
	return GraphOutput{Reply: reply}, nil
}

// ParseVoice splits model output into the rich and spoken channels. Without
// the delimiter the spoken channel is the first sentence with markup removed.
func ParseVoice(content string) (rich string, voice string) {
	if strings.TrimSpace(content) == "" {
		return "", ""
	}

	if before, after, ok := strings.Cut(content, VoiceDelimiter); ok {
		after, _, _ = strings.Cut(after, VoiceDelimiter)
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}

	rich = strings.TrimSpace(content)
	first, _, _ := strings.Cut(rich, ".")
	first = markupPattern.ReplaceAllString(first, "")
	first = strings.TrimSpace(whitespacePattern.ReplaceAllString(first, " "))
	if first == "" {
		return rich, fallbackVoice
	}
	return rich, first + "."
}

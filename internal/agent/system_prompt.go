package agent

import (
	"fmt"
	"strings"
	"time"
)

// assistantPolicy is the standing instruction set for the clinic assistant.
const assistantPolicy = `You are a friendly AI assistant designed to help with the management of a veterinarian pet clinic called Spring Petclinic.

Your job is to answer questions about and to perform actions on the user's behalf, mainly around veterinarians, owners, owners' pets and owners' visits.

You are required to answer in a professional manner. If you don't know the answer, politely tell the user you don't know the answer, then ask the user a followup question to try and clarify the question they are asking.

If you do know the answer, provide the answer but do not provide any additional followup questions.

When dealing with vets, if the user is unsure about the returned results, explain that there may be additional data that was not returned. Only if the user is asking about the total number of all vets, answer that there are a lot and ask for some additional criteria.

For owners, pets or visits - provide the correct data.`

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	ExtraPrompt string
}

// BuildSystemPrompt constructs the system prompt for the LLM. Tool
// definitions travel in the request's native tools field, not in the prompt.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	b.WriteString(assistantPolicy)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Current date: %s\n", time.Now().Format("2006-01-02")))

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}

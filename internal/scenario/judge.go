package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"github.com/Elektra-V/scenario-framework/internal/llm"
)

// ErrUnparsableVerdict is returned when the judge's answer holds no usable JSON verdict.
var ErrUnparsableVerdict = errors.New("judge returned no parsable verdict")

const judgePrompt = `You are judging a conversation between a user and an AI agent.

Scenario: %s

Criteria:
%s
Evaluate the transcript against every criterion. %s
Answer with a single JSON object and nothing else:
{"verdict": "continue" | "pass" | "fail", "met_criteria": [...], "unmet_criteria": [...], "reasoning": "..."}
Copy criteria verbatim into met_criteria or unmet_criteria.`

const (
	judgeOngoing = `If the conversation is still in progress and could yet satisfy the criteria, answer "continue".`
	judgeFinal   = `The conversation is over: you must answer "pass" or "fail".`
)

// JudgeAgent decides whether a conversation meets its criteria.
type JudgeAgent struct {
	backend  llm.Backend
	model    string
	criteria []string
}

// NewJudge creates an LLM judge for criteria.
func NewJudge(backend llm.Backend, model string, criteria []string) *JudgeAgent {
	return &JudgeAgent{backend: backend, model: model, criteria: append([]string(nil), criteria...)}
}

// Role implements Agent.
func (j *JudgeAgent) Role() Role { return RoleJudge }

// Criteria returns the criteria the judge evaluates.
func (j *JudgeAgent) Criteria() []string { return append([]string(nil), j.criteria...) }

// Call implements Agent.
func (j *JudgeAgent) Call(ctx context.Context, in Input) (Reply, error) {
	var criteria strings.Builder
	for i, c := range j.criteria {
		fmt.Fprintf(&criteria, "%d. %s\n", i+1, c)
	}
	instruction := judgeOngoing
	if in.FinalTurn() {
		instruction = judgeFinal
	}

	msg, err := llm.Complete(ctx, j.backend, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(judgePrompt, in.Description, criteria.String(), instruction)},
			{Role: openai.ChatMessageRoleUser, Content: renderTranscript(in.Messages)},
		},
	})
	if err != nil {
		return Reply{}, err
	}

	v, err := ParseVerdict(msg.Content)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Verdict: v}, nil
}

func renderTranscript(msgs []llm.Message) string {
	var b strings.Builder
	b.WriteString("<transcript>\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	b.WriteString("</transcript>")
	return b.String()
}

// ParseVerdict reads a judge answer. It tolerates markdown fences, prose
// around the JSON object, trailing commas and // comments.
func ParseVerdict(content string) (*Verdict, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnparsableVerdict, truncate(content, 200))
	}

	res := gjson.Parse(raw)
	v := &Verdict{}
	switch strings.ToLower(strings.TrimSpace(res.Get("verdict").String())) {
	case "pass", "success", "passed":
		v.Decision = DecisionPass
	case "fail", "failure", "failed":
		v.Decision = DecisionFail
	case "continue", "":
		v.Decision = DecisionContinue
	default:
		return nil, fmt.Errorf("%w: unknown verdict %q", ErrUnparsableVerdict, res.Get("verdict").String())
	}

	j := &Judgment{
		MetCriteria:   stringArray(res.Get("met_criteria")),
		UnmetCriteria: stringArray(res.Get("unmet_criteria")),
		Reasoning:     res.Get("reasoning").String(),
	}
	if len(j.MetCriteria) > 0 || len(j.UnmetCriteria) > 0 || j.Reasoning != "" {
		v.Judgment = j
	}
	return v, nil
}

func stringArray(r gjson.Result) []string {
	var out []string
	for _, item := range r.Array() {
		out = append(out, item.String())
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package harmony

import (
	"os"
	"runtime"
	"strings"
	"sync"
)

// RenderConversation encodes an entire conversation into Harmony tokens. If
// cfg is nil, DefaultRenderConversationConfig() is used.
//
// Two conversation-scoped policies apply (§4.7), both computed fresh for
// this call and never cached on the Encoding (see §5/§9):
//
//   - Function-tools presence: true iff any message carries a
//     DeveloperContent whose tool map has a non-empty "functions" namespace.
//     Every system message rendered in this call sees that value.
//   - Auto-drop analysis: when cfg.AutoDropAnalysis and the last assistant
//     message is on the final channel, every analysis-channel message
//     strictly before the first final-channel message is omitted.
func (e *Encoding) RenderConversation(conv Conversation, cfg *RenderConversationConfig) ([]uint32, error) {
	autoDrop := true
	if cfg != nil {
		autoDrop = cfg.AutoDropAnalysis
	}

	lastAssistantFinal := false
	firstFinal := -1
	hasFunctionTools := false
	for i := range conv.Messages {
		m := conv.Messages[i]
		if m.Channel == "final" && firstFinal == -1 {
			firstFinal = i
		}
		if m.Author.Role == RoleAssistant {
			lastAssistantFinal = m.Channel == "final"
		}
		if !hasFunctionTools {
			for _, c := range m.Content {
				if c.Type == ContentDeveloper && c.Developer != nil {
					if ns, ok := c.Developer.Tools["functions"]; ok && len(ns.Tools) > 0 {
						hasFunctionTools = true
						break
					}
				}
			}
		}
	}
	shouldDrop := autoDrop && lastAssistantFinal

	renderIdx := make([]int, 0, len(conv.Messages))
	for i := range conv.Messages {
		m := conv.Messages[i]
		if shouldDrop && firstFinal >= 0 && i < firstFinal && m.Channel == "analysis" {
			continue
		}
		renderIdx = append(renderIdx, i)
	}
	if len(renderIdx) == 0 {
		return []uint32{}, nil
	}

	opts := renderOptions{conversationHasFunctionTools: hasFunctionTools}

	totalTokBudget := 0
	if renderPresizeEnabled() {
		for _, i := range renderIdx {
			totalTokBudget += estimateTokenBudget(conv.Messages[i])
		}
	}

	if shouldParallelRender(conv.Messages, renderIdx) {
		return e.renderConversationParallel(conv, renderIdx, opts, totalTokBudget)
	}

	var out []uint32
	if renderPresizeEnabled() {
		out = make([]uint32, 0, totalTokBudget)
	}
	for _, idx := range renderIdx {
		if err := e.renderMessageInto(conv.Messages[idx], opts, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// renderConversationParallel renders independent messages across goroutines
// bounded by GOMAXPROCS. Each message's tokens are computed in isolation and
// written into its own slot, so output order matches message order exactly
// regardless of goroutine completion order — byte-identical to the
// sequential path.
func (e *Encoding) renderConversationParallel(conv Conversation, renderIdx []int, opts renderOptions, totalTokBudget int) ([]uint32, error) {
	results := make([][]uint32, len(renderIdx))
	var errOnce sync.Once
	var firstErr error
	maxWorkers := runtime.GOMAXPROCS(0)
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for slot, idx := range renderIdx {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot, msgIdx int) {
			defer wg.Done()
			defer func() { <-sem }()
			var toks []uint32
			if err := e.renderMessageInto(conv.Messages[msgIdx], opts, &toks); err != nil {
				errOnce.Do(func() { firstErr = err })
				return
			}
			results[slot] = toks
		}(slot, idx)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	var out []uint32
	if renderPresizeEnabled() {
		out = make([]uint32, 0, totalTokBudget)
	}
	for _, toks := range results {
		out = append(out, toks...)
	}
	return out, nil
}

// RenderConversationForCompletion renders conv then appends <|start|> plus
// the text of next, priming the model to continue as that role. Per
// Testable Property 2, this is always an exact prefix extension of
// RenderConversation(conv, cfg).
func (e *Encoding) RenderConversationForCompletion(conv Conversation, next Role, cfg *RenderConversationConfig) ([]uint32, error) {
	out, err := e.RenderConversation(conv, cfg)
	if err != nil {
		return nil, err
	}
	out = append(out, e.idStart)
	e.renderText(string(next), &out)
	return out, nil
}

// RenderConversationForTraining renders conv, then — iff the last message is
// an assistant message on the final channel — replaces the trailing
// terminator token with EndMessageDoneSampling (Testable Property 3).
func (e *Encoding) RenderConversationForTraining(conv Conversation, cfg *RenderConversationConfig) ([]uint32, error) {
	if len(conv.Messages) == 0 {
		return []uint32{}, nil
	}
	out, err := e.RenderConversation(conv, cfg)
	if err != nil {
		return nil, err
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.Author.Role == RoleAssistant && last.Channel == "final" && len(out) > 0 {
		out[len(out)-1] = e.idReturn
	}
	return out, nil
}

const (
	parallelRenderMinBytes    = 8 * 1024
	parallelRenderMinMessages = 2
)

var (
	parallelFlag struct {
		once    sync.Once
		enabled bool
	}
	presizeFlag struct {
		once    sync.Once
		enabled bool
	}
)

// parallelRenderEnabled reports whether conversation rendering may fan out
// across goroutines. Controlled by HARMONY_RENDER_PARALLEL (default on).
func parallelRenderEnabled() bool {
	parallelFlag.once.Do(func() {
		v := strings.ToLower(os.Getenv("HARMONY_RENDER_PARALLEL"))
		parallelFlag.enabled = v != "0" && v != "false"
	})
	return parallelFlag.enabled
}

// renderPresizeEnabled reports whether output slices should be pre-sized
// from a size heuristic. Controlled by HARMONY_RENDER_PRESIZE (default on).
func renderPresizeEnabled() bool {
	presizeFlag.once.Do(func() {
		v := strings.ToLower(os.Getenv("HARMONY_RENDER_PRESIZE"))
		presizeFlag.enabled = v != "0" && v != "false"
	})
	return presizeFlag.enabled
}

func shouldParallelRender(msgs []Message, indices []int) bool {
	if !parallelRenderEnabled() || len(indices) < parallelRenderMinMessages {
		return false
	}
	total := 0
	for _, idx := range indices {
		total += estimateMessageSize(msgs[idx])
		if total >= parallelRenderMinBytes {
			return true
		}
	}
	return false
}

func estimateTokenBudget(msg Message) int {
	toks := estimateMessageSize(msg)/3 + 16
	if toks > 1<<20 {
		toks = 1 << 20
	}
	return toks
}

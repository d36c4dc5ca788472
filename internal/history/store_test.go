package history

import (
	"errors"
	"strings"
	"testing"

	"github.com/aish-sh/aish/internal/llm"
)

// budgetProfile returns the profile used across the eviction tests:
// one token of envelope per message, a 50-token window and a 10-token
// response reservation.
func budgetProfile() Profile {
	return Profile{
		Model:             "test-model",
		TokensPerMessage:  1,
		TokensPerName:     1,
		ContextLimit:      50,
		MaxResponseTokens: 10,
	}
}

// msgOfCost builds a message whose estimated cost under budgetProfile is
// exactly cost tokens (1 envelope + content tokens).
func msgOfCost(t *testing.T, role llm.Role, cost int) llm.Message {
	t.Helper()
	if cost < 1 {
		t.Fatalf("cost must cover the message envelope, got %d", cost)
	}
	msg := llm.Message{Role: role, Content: strings.Repeat("x", (cost-1)*4)}
	if got := budgetProfile().messageCost(msg); got != cost {
		t.Fatalf("constructed message costs %d tokens, want %d", got, cost)
	}
	return msg
}

func TestEstimateCostIsPure(t *testing.T) {
	p := budgetProfile()
	messages := []llm.Message{
		llm.SystemText("you are a helpful shell assistant"),
		llm.UserText("list files modified today"),
		llm.AssistantText("Use `find . -mtime 0`."),
	}
	first := p.EstimateCost(messages)
	second := p.EstimateCost(messages)
	if first != second {
		t.Fatalf("EstimateCost not stable: %d then %d", first, second)
	}
	if first <= replyPrimingTokens {
		t.Fatalf("cost %d does not account for message content", first)
	}
}

func TestEstimateCostCountsToolFields(t *testing.T) {
	p := budgetProfile()
	plain := llm.AssistantText("running")
	withCall := plain
	withCall.ToolCalls = []llm.ToolCall{{ID: "call_1", Name: "run_command", Arguments: []byte(`{"command":"ls"}`)}}
	if p.EstimateCost([]llm.Message{withCall}) <= p.EstimateCost([]llm.Message{plain}) {
		t.Fatal("tool calls should add to the estimated cost")
	}
}

func TestAdmitRejectsOversizedInput(t *testing.T) {
	store := NewStore(budgetProfile())
	store.Append(llm.SystemText("keep me"))
	before := store.Len()

	// 40 content tokens + envelope + 10 reservation reaches the window.
	err := store.Admit(msgOfCost(t, llm.RoleUser, 40))
	if !errors.Is(err, ErrInputTooLarge) {
		t.Fatalf("expected ErrInputTooLarge, got %v", err)
	}
	if store.Len() != before {
		t.Fatalf("history changed on rejected admit: %d -> %d", before, store.Len())
	}
}

func TestAdmitEvictsOldestPair(t *testing.T) {
	// contextLimit=50, reservation=10, one 5-token system message and
	// three user/assistant pairs costing 15 tokens each. Admitting a new
	// 5-token user message must evict exactly the oldest pair.
	store := NewStore(budgetProfile())
	store.Append(msgOfCost(t, llm.RoleSystem, 5))
	for i := 0; i < 3; i++ {
		store.Append(msgOfCost(t, llm.RoleUser, 6))
		store.Append(msgOfCost(t, llm.RoleAssistant, 9))
	}

	if err := store.Admit(msgOfCost(t, llm.RoleUser, 5)); err != nil {
		t.Fatalf("Admit: %v", err)
	}

	msgs := store.Messages()
	if len(msgs) != 6 {
		t.Fatalf("expected system + 2 pairs + new message (6), got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem {
		t.Fatal("system message was evicted")
	}
	wantRoles := []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	for i, want := range wantRoles {
		if msgs[i].Role != want {
			t.Fatalf("message %d: role %s, want %s", i, msgs[i].Role, want)
		}
	}
	p := budgetProfile()
	if over := p.messagesCost(msgs) + p.MaxResponseTokens; over > p.ContextLimit {
		t.Fatalf("still over budget after admit: %d > %d", over, p.ContextLimit)
	}
}

func TestAdmitNeverEvictsSystemMessages(t *testing.T) {
	store := NewStore(budgetProfile())
	store.Append(msgOfCost(t, llm.RoleSystem, 10))
	store.Append(msgOfCost(t, llm.RoleSystem, 10))
	store.Append(msgOfCost(t, llm.RoleUser, 15))

	if err := store.Admit(msgOfCost(t, llm.RoleUser, 15)); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	for i, msg := range store.Messages() {
		if i < 2 && msg.Role != llm.RoleSystem {
			t.Fatalf("leading system run broken at %d", i)
		}
	}
}

func TestAdmitEvictsAssistantWithTrailingToolMessages(t *testing.T) {
	store := NewStore(budgetProfile())
	store.Append(msgOfCost(t, llm.RoleSystem, 5))
	assistant := msgOfCost(t, llm.RoleAssistant, 10)
	assistant.ToolCalls = []llm.ToolCall{{ID: "call_1", Name: "x"}}
	store.Append(assistant)
	tool := msgOfCost(t, llm.RoleTool, 10)
	tool.ToolCallID = "call_1"
	store.Append(tool)
	store.Append(msgOfCost(t, llm.RoleUser, 10))

	if err := store.Admit(msgOfCost(t, llm.RoleUser, 15)); err != nil {
		t.Fatalf("Admit: %v", err)
	}
	for _, msg := range store.Messages() {
		if msg.Role == llm.RoleTool {
			t.Fatal("orphaned tool message left behind after its assistant was evicted")
		}
	}
}

func TestAdmitReportsInvariantViolation(t *testing.T) {
	store := NewStore(budgetProfile())
	store.Append(msgOfCost(t, llm.RoleSystem, 30))
	store.Append(msgOfCost(t, llm.RoleSystem, 30))
	before := store.Len()

	err := store.Admit(msgOfCost(t, llm.RoleUser, 5))
	if err == nil {
		t.Fatal("expected an error when only system messages remain over budget")
	}
	if errors.Is(err, ErrInputTooLarge) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if store.Len() != before {
		t.Fatal("failed admit mutated history")
	}
}

func TestAppendDropsEmptyAssistantMessage(t *testing.T) {
	store := NewStore(budgetProfile())
	store.Append(llm.Message{Role: llm.RoleAssistant})
	if store.Len() != 0 {
		t.Fatal("empty assistant message was persisted")
	}
	store.Append(llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c", Name: "f"}}})
	if store.Len() != 1 {
		t.Fatal("assistant message with tool calls should be persisted")
	}
}

func TestLoadAppliesMessageInvariants(t *testing.T) {
	store := NewStore(budgetProfile())
	store.Load([]llm.Message{
		llm.SystemText("sys"),
		llm.UserText("hi"),
		{Role: llm.RoleAssistant}, // backend anomaly, must be dropped
		llm.AssistantText("hello"),
	})
	if store.Len() != 3 {
		t.Fatalf("expected 3 messages after load, got %d", store.Len())
	}
}

func TestReconfigureClearsHistory(t *testing.T) {
	store := NewStore(budgetProfile())
	store.Append(llm.UserText("hi"))
	fresh := DefaultProfile("other-model")
	store.Reconfigure(fresh)
	if store.Len() != 0 {
		t.Fatal("model switch must clear history")
	}
	if store.Profile().Model != "other-model" {
		t.Fatalf("profile not swapped: %s", store.Profile().Model)
	}
}

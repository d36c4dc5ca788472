package history

import (
	"strings"
	"testing"
)

func TestTruncateOversizedToolOutput(t *testing.T) {
	p := Profile{Model: "test", TokensPerMessage: 1, ContextLimit: 1000, MaxResponseTokens: 30}

	long := strings.Repeat("output line\n", 100)
	got := p.TruncateOversizedToolOutput(long)
	if !strings.HasSuffix(got, truncationMarker) {
		t.Fatal("truncated output missing marker")
	}
	if cost := textTokens(got); cost > p.MaxResponseTokens {
		t.Fatalf("truncated output still costs %d tokens, cap is %d", cost, p.MaxResponseTokens)
	}
}

func TestTruncateIsIdempotentOnceBelowCap(t *testing.T) {
	p := Profile{Model: "test", TokensPerMessage: 1, ContextLimit: 1000, MaxResponseTokens: 30}

	short := "exit status 0"
	if got := p.TruncateOversizedToolOutput(short); got != short {
		t.Fatalf("short output changed: %q", got)
	}

	long := strings.Repeat("data ", 500)
	once := p.TruncateOversizedToolOutput(long)
	twice := p.TruncateOversizedToolOutput(once)
	if once != twice {
		t.Fatalf("re-truncating changed output:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestTruncateNoOpWithoutCap(t *testing.T) {
	p := Profile{Model: "test"}
	long := strings.Repeat("x", 10000)
	if got := p.TruncateOversizedToolOutput(long); got != long {
		t.Fatal("truncation applied without a response token cap")
	}
}

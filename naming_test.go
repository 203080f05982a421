package performs

import "testing"

func TestSuffixNaming(t *testing.T) {
	tests := []struct {
		in, name, suffix string
	}{
		{"publish!", "publish", "!"},
		{"published?", "published", "?"},
		{"publish", "publish", ""},
		{"publish!?", "publish!", "?"},
		{"", "", ""},
	}
	for _, tt := range tests {
		name, suffix := SuffixNaming(tt.in)
		if name != tt.name || suffix != tt.suffix {
			t.Errorf("SuffixNaming(%q) = %q, %q; want %q, %q", tt.in, name, suffix, tt.name, tt.suffix)
		}
	}
}

func TestSuffixNaming_IdempotentOnNormalizedNames(t *testing.T) {
	for _, in := range []string{"publish!", "retract", "visible?"} {
		once, _ := SuffixNaming(in)
		twice, suffix := SuffixNaming(once)
		if twice != once || suffix != "" {
			t.Errorf("SuffixNaming(%q) = %q, %q; want %q unchanged", once, twice, suffix, once)
		}
	}
}

func TestMethodJobName(t *testing.T) {
	tests := []struct {
		model, method, want string
	}{
		{"Article", "publish", "Article.PublishJob"},
		{"Article", "publish_now", "Article.PublishNowJob"},
		{"Article", "publishNow", "Article.PublishNowJob"},
		{"Account", "send-welcome-mail", "Account.SendWelcomeMailJob"},
	}
	for _, tt := range tests {
		if got := methodJobName(tt.model, tt.method); got != tt.want {
			t.Errorf("methodJobName(%q, %q) = %q, want %q", tt.model, tt.method, got, tt.want)
		}
	}
	if got := baseJobName("Article"); got != "Article.Job" {
		t.Errorf("baseJobName = %q, want Article.Job", got)
	}
}

func TestGeneratedNames(t *testing.T) {
	if got := laterName("publish", "!"); got != "publish_later!" {
		t.Errorf("laterName = %q", got)
	}
	if got := bulkName("publish", "!"); got != "publish_later_bulk!" {
		t.Errorf("bulkName = %q", got)
	}
}

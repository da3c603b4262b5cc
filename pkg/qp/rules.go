package qp

import "regexp"

// Rules is the rule table of the query processor.
type Rules struct {
	ResetHints    []string
	EditHints     []string
	EvidenceHints []string
	// EditDay matches explicit day references such as "第2天" or "day 2".
	EditDay *regexp.Regexp
	// Question matches question marks and local-info keywords.
	Question        *regexp.Regexp
	RecallSeparator string
}

// DefaultRules returns the built-in intent table.
func DefaultRules() Rules {
	return Rules{
		ResetHints:      []string{"重置", "重新开始", "清空", "从头开始"},
		EditHints:       []string{"修改", "改", "调整", "换成", "替换", "删掉", "增加"},
		EvidenceHints:   []string{"为什么", "证据", "来源", "链接", "依据", "ref"},
		EditDay:         regexp.MustCompile(`(?i)(第\s*[0-9一二三四五六七八九十两]+\s*天|day\s*\d+)`),
		Question:        regexp.MustCompile(`[?？]|(几点|多久|开放|门票|交通|地址)`),
		RecallSeparator: " | ",
	}
}

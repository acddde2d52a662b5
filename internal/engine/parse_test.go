package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "裸 JSON 原样返回",
			input:    `{"intent": "reply"}`,
			expected: `{"intent": "reply"}`,
		},
		{
			name:     "json 代码块剥离",
			input:    "```json\n{\"intent\": \"reply\"}\n```",
			expected: `{"intent": "reply"}`,
		},
		{
			name:     "普通代码块剥离",
			input:    "```\n{\"intent\": \"reply\"}\n```",
			expected: `{"intent": "reply"}`,
		},
		{
			name:     "前后缀文本取大括号跨度",
			input:    "Here is the result: {\"intent\": \"reply\"} hope it helps",
			expected: `{"intent": "reply"}`,
		},
		{
			name:     "贪婪匹配取首尾大括号",
			input:    `{"a": {"b": 1}} trailing {"c": 2}`,
			expected: `{"a": {"b": 1}} trailing {"c": 2}`,
		},
		{
			name:     "无对象原样返回",
			input:    "no json here",
			expected: "no json here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestParseDecision_Errors(t *testing.T) {
	_, err := parseDecision("completely not json")
	assert.Error(t, err)

	_, err = parseDecision("")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel", truncate("hello", 3))
	assert.Equal(t, "你好", truncate("你好世界", 2))
	// 限制按字符计：字节数超限但字符数未超限时不截断
	assert.Equal(t, "你好", truncate("你好", 3))
}

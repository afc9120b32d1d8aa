package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripThinkTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no tags", in: "plain reply", want: "plain reply"},
		{name: "leading block", in: "<think>hmm</think>answer", want: "answer"},
		{name: "multiline block", in: "<think>\nline one\nline two\n</think>\nanswer", want: "answer"},
		{name: "multiple blocks", in: "<think>a</think>x<think>b</think>y", want: "xy"},
		{name: "only a block", in: "<think>nothing else</think>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripThinkTags(tt.in))
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no fence", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "bare fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "fence on same line", in: "```{\"a\": 1}```", want: `{"a": 1}`},
		{name: "surrounding whitespace", in: "  ```json\n{}\n```  ", want: "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

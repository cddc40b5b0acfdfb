package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"verdict": "pass", // done`, `"verdict": "pass",`},
		{`"url": "http://example.com"`, `"url": "http://example.com"`},
		{`"url": "http://example.com" // note`, `"url": "http://example.com"`},
		{`"quote": "say \"//\" twice"`, `"quote": "say \"//\" twice"`},
		{`no comment`, `no comment`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripLineComment(tt.in))
	}
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"verdict": "pass"}`, extractJSON("{\"verdict\": \"pass\"}\nThen {more}."))
	assert.Equal(t, `{"a": {"b": [1]}}`, extractJSON(`prose {x} then {"a": {"b": [1,]}} tail }`))
	assert.Empty(t, extractJSON("no json here"))
	assert.Empty(t, extractJSON(`{"verdict": `))
}

package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStrictJSONPassesThrough(t *testing.T) {
	cases := []string{
		`{"files": [{"path": "a.txt", "content": "plain"}]}`,
		`{"files": [{"path": "a.txt", "content": "line\nbreak\tand \"quote\""}]}`,
		`{"projectName": "todo-app", "fileSpecs": [], "features": ["a", "b"]}`,
		`{"nested": {"deep": [1, 2, {"k": "v"}]}, "done": true}`,
	}
	for _, in := range cases {
		assert.Equal(t, in, Normalize(in))
	}
}

func TestNormalizeSingleQuotes(t *testing.T) {
	assert.Equal(t, `{"a": "b"}`, Normalize(`{'a': 'b'}`))
	assert.Equal(t, `{"list": ["x", "y"]}`, Normalize(`{'list': ['x', 'y']}`))
	assert.Equal(t, `{"a": "it's fine"}`, Normalize(`{'a': 'it\'s fine'}`))
}

func TestNormalizeEscapesLooseContent(t *testing.T) {
	in := "{\"content\": \"one\ntwo\tthree\\ four\"}"
	out := Normalize(in)

	var decoded map[string]string
	assert.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "one\ntwo\tthree\\ four", decoded["content"])
}

func TestNormalizeInnerQuotesByLookahead(t *testing.T) {
	out := Normalize(`{"msg": "say "hi" now"}`)

	var decoded map[string]string
	assert.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, `say "hi" now`, decoded["msg"])
}

func TestNormalizeApostropheInsideDoubleQuotes(t *testing.T) {
	in := `{"msg": "don't touch"}`
	assert.Equal(t, in, Normalize(in))
}

func TestNormalizeIdempotent(t *testing.T) {
	cases := []string{
		`{"files": [{"path": "a.txt", "content": "plain"}]}`,
		`{'files': [{'path': 'a.txt', 'content': 'it\'s here'}]}`,
		`{"msg": "say "hi" now"}`,
		"{\"content\": \"one\ntwo\tthree\"}",
		`{"content": "back\\slash and \"quotes\""}`,
		"prose before {\"files\": [{\"path\": \"a\", \"content\": \"b\nc\"}]} prose after",
		`{"files": [{"path": "a.js", "content": "run()},\ndone"}]}`,
	}
	for _, in := range cases {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestNormalizeControlCharacters(t *testing.T) {
	in := "{\"content\": \"a\x01b\"}"
	out := Normalize(in)

	var decoded map[string]string
	assert.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "a\x01b", decoded["content"])
}

func TestNormalizeUnterminatedStringLeftOpen(t *testing.T) {
	out := Normalize(`{"content": "never ends`)

	var decoded map[string]string
	assert.Error(t, json.Unmarshal([]byte(out), &decoded))
}

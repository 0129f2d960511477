package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTextRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		list []string
		text string
	}{
		{name: "empty list", list: []string{}, text: "[]"},
		{name: "single element has no trailing comma", list: []string{"file"}, text: "[file]"},
		{name: "several elements", list: []string{"a", "b", "c"}, text: "[a,b,c]"},
		{name: "elements keep inner spaces", list: []string{"*.txt", "read me"}, text: "[*.txt,read me]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := FormatText(Encode(tt.list, KindList))
			assert.Equal(t, tt.text, text)

			v, ok := ParseText(text, KindList)
			require.True(t, ok)
			assert.Equal(t, tt.list, Decode(&v, KindList, nil))
		})
	}
}

func TestParseListRejectsUnbracketed(t *testing.T) {
	for _, s := range []string{"", "a,b", "[a,b", "a]"} {
		_, ok := ParseList(s)
		assert.False(t, ok, "input %q", s)
	}
}

func TestBoolText(t *testing.T) {
	assert.Equal(t, "true", FormatText(Encode(true, KindBool)))
	assert.Equal(t, "false", FormatText(Encode(false, KindBool)))

	v, ok := ParseText("true", KindBool)
	require.True(t, ok)
	assert.True(t, v.Bool)

	_, ok = ParseText("TRUE", KindBool)
	assert.False(t, ok, "only lowercase is accepted")
	_, ok = ParseText("1", KindBool)
	assert.False(t, ok)
}

func TestUintText(t *testing.T) {
	v, ok := ParseText("3", KindUint)
	require.True(t, ok)
	assert.Equal(t, uint(3), v.Uint)
	assert.Equal(t, "3", FormatText(v))

	_, ok = ParseText("-1", KindUint)
	assert.False(t, ok)
}

func TestDecodeNeverFails(t *testing.T) {
	assert.Equal(t, "dflt", Decode(nil, KindString, "dflt"))
	assert.Equal(t, true, Decode(&Value{Kind: KindList}, KindBool, true), "kind mismatch yields default")
	assert.Equal(t, "x", Decode(&Value{Kind: KindString, Str: "x"}, KindLocalized, ""), "string and localized are interchangeable")
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Value{Kind: KindList}, Value{Kind: KindList, List: []string{}}))
	assert.False(t, Equal(Value{Kind: KindList, List: []string{"a"}}, Value{Kind: KindList, List: []string{"b"}}))
	assert.False(t, Equal(Value{Kind: KindBool}, Value{Kind: KindString}))
}

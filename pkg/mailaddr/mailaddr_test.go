package mailaddr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/mailaddr"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  mailaddr.Address
	}{
		{
			name:  "bare email",
			input: "john@example.com",
			want:  mailaddr.Address{Email: "john@example.com"},
		},
		{
			name:  "bare email with whitespace",
			input: "  john@example.com  ",
			want:  mailaddr.Address{Email: "john@example.com"},
		},
		{
			name:  "named address",
			input: "John Doe <john@example.com>",
			want:  mailaddr.Address{Email: "john@example.com", Name: "John Doe"},
		},
		{
			name:  "quoted name",
			input: `"John Doe" <john@example.com>`,
			want:  mailaddr.Address{Email: "john@example.com", Name: "John Doe"},
		},
		{
			name:  "single quoted name",
			input: "'John Doe' <john@example.com>",
			want:  mailaddr.Address{Email: "john@example.com", Name: "John Doe"},
		},
		{
			name:  "escaped quotes inside quoted name",
			input: `"\"John Doe\"" <john@example.com>`,
			want:  mailaddr.Address{Email: "john@example.com", Name: "John Doe"},
		},
		{
			name:  "no name before brackets",
			input: "<john@example.com>",
			want:  mailaddr.Address{Email: "john@example.com"},
		},
		{
			name:  "empty string",
			input: "",
			want:  mailaddr.Address{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mailaddr.Parse(tt.input))
		})
	}
}

func TestParseList(t *testing.T) {
	t.Parallel()

	addrs := mailaddr.ParseList("a@x.com, Jane <b@x.com>,, c@x.com ,")
	require.Len(t, addrs, 3)
	assert.Equal(t, "a@x.com", addrs[0].Email)
	assert.Equal(t, "b@x.com", addrs[1].Email)
	assert.Equal(t, "Jane", addrs[1].Name)
	assert.Equal(t, "c@x.com", addrs[2].Email)

	assert.Empty(t, mailaddr.ParseList(""))
	assert.Empty(t, mailaddr.ParseList(" , ,"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Empty(t, mailaddr.Normalize(nil))
	assert.Equal(t, "a@x.com,b@x.com", mailaddr.Normalize([]string{"a@x.com,b@x.com"}))
	assert.Equal(t, "a@x.com", mailaddr.Normalize([]string{"  a@x.com "}))
	assert.Equal(t,
		"a@x.com,Jane <b@x.com>",
		mailaddr.Normalize([]string{" a@x.com", "Jane <b@x.com> "}),
	)
}

func TestExtractEmails(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "john@example.com", mailaddr.ExtractEmail("John <john@example.com>"))
	assert.Equal(t,
		"a@x.com, b@x.com",
		mailaddr.ExtractEmails("Ann <a@x.com>, b@x.com"),
	)
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"John Doe <john@example.com>", "John Doe"},
		{"jane.doe@example.com", "Jane Doe"},
		{"jane_van-dam@example.com", "Jane Van Dam"},
		{"admin@example.com", "Admin"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, mailaddr.DisplayName(tt.input), tt.input)
	}
}

func TestSplitName(t *testing.T) {
	t.Parallel()

	first, last := mailaddr.SplitName("John Doe")
	assert.Equal(t, "John", first)
	assert.Equal(t, "Doe", last)

	first, last = mailaddr.SplitName("Ann Maria van Dam")
	assert.Equal(t, "Ann", first)
	assert.Equal(t, "Maria van Dam", last)

	first, last = mailaddr.SplitName("Madonna")
	assert.Equal(t, "Madonna", first)
	assert.Empty(t, last)

	first, last = mailaddr.SplitName("  ")
	assert.Empty(t, first)
	assert.Empty(t, last)
}

func TestAddressString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a@x.com", mailaddr.Address{Email: "a@x.com"}.String())
	assert.Equal(t, "Ann <a@x.com>", mailaddr.Address{Email: "a@x.com", Name: "Ann"}.String())
}

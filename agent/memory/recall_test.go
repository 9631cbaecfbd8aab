package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docOf(t *testing.T, records map[string]Record) Document {
	t.Helper()
	doc := Document{}
	for id, r := range records {
		require.NoError(t, doc.Put(id, r))
	}
	return doc
}

func TestRecordsIgnoresNonRecordEntries(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(`{
		"a": {"message": "kept", "theme": "fact"},
		"b": {"theme": "no message"},
		"c": "plain string",
		"d": [1, 2, 3]
	}`))
	require.NoError(t, err)

	records := doc.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Message)
	assert.Equal(t, "a", records[0].ID)
}

func TestFullRecallOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	doc := docOf(t, map[string]Record{
		"1": {Message: "oldest", Theme: "t", Date: "2024-01-01", Time: "09:00:00"},
		"2": {Message: "newest", Theme: "t", Date: "2024-03-01", Time: "08:00:00"},
		"3": {Message: "middle", Theme: "t", Date: "2024-01-01", Time: "17:30:00"},
		"4": {Message: "undated"},
	})

	got := Recall(doc, Scope{}, RecallOptions{FullRecall: true})
	want := strings.Join([]string{
		"All memories from shared memory:",
		"• newest (Theme: t, Recorded: 2024-03-01 08:00:00)",
		"• middle (Theme: t, Recorded: 2024-01-01 17:30:00)",
		"• oldest (Theme: t, Recorded: 2024-01-01 09:00:00)",
		"• undated (Theme: Unknown)",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestRecallKeywordsAndLimit(t *testing.T) {
	t.Parallel()

	doc := docOf(t, map[string]Record{
		"1": {Message: "Call Alice about invoices", Theme: "task", Date: "2024-01-01", Time: "09:00:00"},
		"2": {Message: "Prefers email", Theme: "Preference", Date: "2024-01-02", Time: "09:00:00"},
		"3": {Message: "Quarterly review", Theme: "insight", Date: "2024-01-03", Time: "09:00:00"},
	})
	scope := Scope{Token: testToken}

	tests := []struct {
		name string
		opts RecallOptions
		want []string
	}{
		{name: "keyword in content", opts: RecallOptions{Keywords: []string{"alice"}}, want: []string{"Call Alice"}},
		{name: "keyword in theme", opts: RecallOptions{Keywords: []string{"PREFERENCE"}}, want: []string{"Prefers email"}},
		{name: "no match falls back to recent", opts: RecallOptions{Keywords: []string{"zebra"}, MaxMessages: 2}, want: []string{"Quarterly review", "Prefers email"}},
		{name: "limit only", opts: RecallOptions{MaxMessages: 1}, want: []string{"Quarterly review"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Recall(doc, scope, tt.opts)
			lines := strings.Split(got, "\n")
			assert.Equal(t, "Here's what I remember for user ID "+testToken+":", lines[0])
			require.Len(t, lines, len(tt.want)+1)
			for i, w := range tt.want {
				assert.Contains(t, lines[i+1], w)
			}
		})
	}
}

func TestRecallEmptyMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "I don't have any memories stored in the shared memory yet.", Recall(Document{}, Scope{}, RecallOptions{}))
	assert.Equal(t, "I don't have any memories stored yet for user ID "+testToken+".", Recall(nil, Scope{Token: testToken}, RecallOptions{}))

	doc, err := ParseDocument([]byte(`{"x":{"note":"no message"}}`))
	require.NoError(t, err)
	assert.Equal(t, "No memories found for this session.", Recall(doc, Scope{}, RecallOptions{FullRecall: true}))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("•ab", 3000)
	got := Truncate(long, 5000)
	assert.Len(t, []rune(got), 5000)
	assert.Equal(t, "short", Truncate("short", 5000))
}

func TestContextBuilderSnapshots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _ := newTestStore(t, "")
	builder := NewContextBuilder(store, 80)

	assert.Equal(t, NoSharedContext, builder.Shared(ctx))
	assert.Equal(t, NoIdentityContext, builder.Identity(ctx, "nope"))
	assert.Equal(t, NoIdentityContext, builder.Identity(ctx, testToken))

	doc := docOf(t, map[string]Record{
		"1": {Message: strings.Repeat("x", 100), Theme: "t", Date: "2024-01-01", Time: "09:00:00"},
	})
	store.Write(ctx, Scope{Token: testToken}, doc)

	got := builder.Identity(ctx, testToken)
	assert.Len(t, []rune(got), 80)
	assert.True(t, strings.HasPrefix(got, "All memories for user ID "+testToken))
}

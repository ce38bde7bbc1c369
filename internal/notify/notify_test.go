package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sendErrs  []error // popped per SendMessage call
	docErr    error
	messages  []*bot.SendMessageParams
	documents []*bot.SendDocumentParams
}

func (f *fakeBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.messages = append(f.messages, params)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return nil, err
	}
	return &models.Message{ID: 1}, nil
}

func (f *fakeBot) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	f.documents = append(f.documents, params)
	if f.docErr != nil {
		return nil, f.docErr
	}
	return &models.Message{ID: 2}, nil
}

func testRequestor() []Field {
	return []Field{
		{Key: "ip", Value: "127.0.0.1"},
		{Key: "source", Value: "curl/8.0"},
	}
}

func TestNotifySmallPayloadInline(t *testing.T) {
	t.Parallel()

	fake := &fakeBot{}
	sink := NewSink(fake, 42, time.Second, "", "", nil)

	sink.Notify(context.Background(), testRequestor(), "morse",
		map[string]string{"input": "SOS", "result": "... --- ...", "error": ""})

	require.Len(t, fake.messages, 1)
	require.Empty(t, fake.documents)

	msg := fake.messages[0]
	assert.EqualValues(t, 42, msg.ChatID)
	assert.Equal(t, models.ParseModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "<pre>")
	assert.Contains(t, msg.Text, "SOS")
	assert.Contains(t, msg.Text, "<b>IP:</b> <code>127.0.0.1</code>")
	assert.Contains(t, msg.Text, "<b>SOURCE:</b> <code>curl/8.0</code>")
}

func TestNotifyLargePayloadAsDocument(t *testing.T) {
	t.Parallel()

	fake := &fakeBot{}
	sink := NewSink(fake, 42, time.Second, "", "", nil)

	// A lyrics result with a very long body must take the attachment path.
	sink.Notify(context.Background(), testRequestor(), "lyrics", map[string]string{
		"title":  "Endless Song",
		"lyrics": strings.Repeat("na na na hey\n", 600),
		"error":  "",
	})

	require.Empty(t, fake.messages)
	require.Len(t, fake.documents, 1)

	doc, ok := fake.documents[0].Document.(*models.InputFileUpload)
	require.True(t, ok)
	assert.Equal(t, "127001.txt", doc.Filename)
}

func TestNotifyInlineFailureTriggersFallback(t *testing.T) {
	t.Parallel()

	fake := &fakeBot{sendErrs: []error{errors.New("telegram down")}}
	sink := NewSink(fake, 42, time.Second, "", "", nil)

	sink.Notify(context.Background(), testRequestor(), "morse",
		map[string]string{"error": ""})

	require.Len(t, fake.messages, 2)
	assert.Contains(t, fake.messages[1].Text, "telegram down")
}

func TestNotifyAbandonedWhenFallbackFails(t *testing.T) {
	t.Parallel()

	fake := &fakeBot{sendErrs: []error{errors.New("down"), errors.New("still down")}}
	sink := NewSink(fake, 42, time.Second, "", "", nil)

	// Must neither panic nor retry further.
	sink.Notify(context.Background(), testRequestor(), "morse",
		map[string]string{"error": ""})
	assert.Len(t, fake.messages, 2)
}

func TestNotifyCarriesLinkButton(t *testing.T) {
	t.Parallel()

	fake := &fakeBot{}
	sink := NewSink(fake, 42, time.Second, "Deployment", "https://example.com/deploy", nil)

	sink.Notify(context.Background(), testRequestor(), "morse",
		map[string]string{"error": ""})

	require.Len(t, fake.messages, 1)
	markup, ok := fake.messages[0].ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "Deployment", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "https://example.com/deploy", markup.InlineKeyboard[0][0].URL)
}

func TestAttachmentName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		requestor []Field
		feature   string
		want      string
	}{
		{
			name:      "digits from address",
			requestor: []Field{{Key: "ip", Value: "192.168.1.7"}},
			feature:   "lyrics",
			want:      "19216817.txt",
		},
		{
			name:      "digitless address falls back to feature",
			requestor: []Field{{Key: "ip", Value: "localhost"}},
			feature:   "lyrics",
			want:      "lyrics.txt",
		},
		{
			name:      "no address no feature",
			requestor: nil,
			feature:   "",
			want:      "audit.txt",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, attachmentName(tc.requestor, tc.feature))
		})
	}
}

func TestFormatRequestorEscapesHTML(t *testing.T) {
	t.Parallel()

	block := formatRequestor([]Field{{Key: "source", Value: "<script>alert(1)</script>"}})
	assert.NotContains(t, block, "<script>")
	assert.Contains(t, block, "&lt;script&gt;")
}

func TestStripTags(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "IP: 1.2.3.4\n", stripTags("<b>IP:</b> <code>1.2.3.4</code>\n"))
}

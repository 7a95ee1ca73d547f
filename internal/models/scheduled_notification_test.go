package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecipientExactlyOneSelector(t *testing.T) {
	subscriptionID := uuid.New()
	topicID := uuid.New()

	tests := []struct {
		name           string
		subscriptionID *uuid.UUID
		topicID        *uuid.UUID
		sendToAll      bool
		wantKind       RecipientKind
		wantErr        bool
	}{
		{"subscription", &subscriptionID, nil, false, RecipientSubscription, false},
		{"topic", nil, &topicID, false, RecipientTopic, false},
		{"all", nil, nil, true, RecipientAll, false},
		{"none", nil, nil, false, "", true},
		{"subscription and topic", &subscriptionID, &topicID, false, "", true},
		{"topic and all", nil, &topicID, true, "", true},
		{"everything", &subscriptionID, &topicID, true, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRecipient(tt.subscriptionID, tt.topicID, tt.sendToAll)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, r.Kind)
			assert.NoError(t, r.Validate())
		})
	}
}

func TestNewContentExactlyOneMode(t *testing.T) {
	templateID := uuid.New()

	t.Run("template", func(t *testing.T) {
		c, err := NewContent(&templateID, Payload{})
		require.NoError(t, err)
		assert.Equal(t, ContentTemplate, c.Kind)
		assert.Equal(t, templateID, c.TemplateID)
	})

	t.Run("inline", func(t *testing.T) {
		c, err := NewContent(nil, Payload{Title: "Hello", Body: "World"})
		require.NoError(t, err)
		assert.Equal(t, ContentInline, c.Kind)
	})

	t.Run("both", func(t *testing.T) {
		_, err := NewContent(&templateID, Payload{Title: "Hello", Body: "World"})
		assert.Error(t, err)
	})

	t.Run("neither", func(t *testing.T) {
		_, err := NewContent(nil, Payload{})
		assert.Error(t, err)
	})

	t.Run("inline missing body", func(t *testing.T) {
		_, err := NewContent(nil, Payload{Title: "Hello"})
		assert.Error(t, err)
	})
}

func TestContentResolveTemplateFallbacks(t *testing.T) {
	tpl := MessageTemplate{ID: uuid.New(), Title: "Digest", Body: "Ready", URL: "https://template.example"}

	c := TemplateContent(tpl.ID)
	c.Inline = Payload{URL: "https://fallback.example", IconPath: "icon.png"}

	p, err := c.Resolve(&tpl)
	require.NoError(t, err)
	assert.Equal(t, "Digest", p.Title)
	// The template's own URL wins; the icon falls back to the row's.
	assert.Equal(t, "https://template.example", p.URL)
	assert.Equal(t, "icon.png", p.IconPath)
}

func TestContentResolveTemplateUnresolved(t *testing.T) {
	c := TemplateContent(uuid.New())
	_, err := c.Resolve(nil)
	assert.Error(t, err)
}

func TestScheduleRequestValidate(t *testing.T) {
	valid := ScheduleRequest{
		Recipient: AllRecipient(),
		Content:   InlineContent(Payload{Title: "t", Body: "b"}),
	}
	assert.NoError(t, valid.Validate())

	missingBody := valid
	missingBody.Content = Content{Kind: ContentInline, Inline: Payload{Title: "t"}}
	assert.Error(t, missingBody.Validate())

	nilTemplate := valid
	nilTemplate.Content = Content{Kind: ContentTemplate}
	assert.Error(t, nilTemplate.Validate())

	badRecipient := valid
	badRecipient.Recipient = Recipient{Kind: RecipientTopic}
	assert.Error(t, badRecipient.Validate())
}

func TestCancelable(t *testing.T) {
	for status, want := range map[ScheduleStatus]bool{
		StatusPending:    true,
		StatusFailed:     true,
		StatusProcessing: false,
		StatusSent:       false,
	} {
		n := ScheduledNotification{Status: status}
		assert.Equal(t, want, n.Cancelable(), "status %s", status)
	}
}

func TestScheduledAtOr(t *testing.T) {
	now := time.Now()

	immediate := ScheduleRequest{}
	assert.Equal(t, now, immediate.ScheduledAtOr(now))

	later := now.Add(2 * time.Hour)
	deferred := ScheduleRequest{SendAt: &later}
	assert.Equal(t, later, deferred.ScheduledAtOr(now))
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/the-receipts-must-flow/internal/inference"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voiceReceipts(t *testing.T, env *testEnv) []model.Receipt {
	t.Helper()
	var out []model.Receipt
	for _, r := range env.receipts(t) {
		if r.Source == model.SourceVoice {
			out = append(out, r)
		}
	}
	return out
}

func TestSayCommand_OneShotSpend(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "say", "I spent ₹450 on coffee")
	require.NoError(t, err)
	assert.Contains(t, out, "Got it. I logged ₹450.00 under Food & Dining.")

	logged := voiceReceipts(t, env)
	require.Len(t, logged, 1)
	assert.Equal(t, voice.Merchant, logged[0].Merchant)
	assert.Equal(t, inference.CategoryFood, logged[0].Category)
	assert.Equal(t, 450.0, logged[0].Amount)
	assert.Contains(t, out, logged[0].ID)
}

func TestSayCommand_OneShotQuestion(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "say", "how", "is", "my", "budget")
	require.NoError(t, err)
	assert.Contains(t, out, "62% of the smart budget")
	assert.Empty(t, voiceReceipts(t, env))
}

func TestSayCommand_Conversation(t *testing.T) {
	env := newTestEnv(t)

	stdin := strings.Join([]string{
		"what is my top spending",
		"",
		":listen",
		"I spent 1,200 on metro tickets",
		":quit",
		"I spent 5 on coffee",
	}, "\n") + "\n"

	out, err := env.run(t, stdin, "say")
	require.NoError(t, err)
	assert.Contains(t, out, "AI Voice Concierge")
	assert.Contains(t, out, "Ask anything about your money")
	assert.Contains(t, out, "top spenders this week")
	assert.Contains(t, out, "Sorry, voice recognition is not supported")
	assert.Contains(t, out, "I logged ₹1,200.00 under Transport")

	logged := voiceReceipts(t, env)
	require.Len(t, logged, 1, "input after :quit is ignored")
	assert.Equal(t, 1200.0, logged[0].Amount)
}

func TestSayCommand_TranscriptsFile(t *testing.T) {
	env := newTestEnv(t)
	transcripts := filepath.Join(env.dir, "dictation.txt")
	require.NoError(t, os.WriteFile(transcripts, []byte("I spent 99 on a movie\n"), 0o600))

	out, err := env.run(t, ":listen\n:listen\n", "say", "--transcripts", transcripts)
	require.NoError(t, err)
	assert.Contains(t, out, "I logged ₹99.00 under Entertainment")
	assert.Contains(t, out, "No more transcripts")

	_, err = env.run(t, "", "say", "--transcripts", filepath.Join(env.dir, "missing.txt"))
	requireUserError(t, err, "Cannot open transcripts file")
}

func TestSayCommand_DictationFromStdin(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "I spent 40 on coffee\nwhat about my budget\nI spent 300 on fuel\n", "say", "--transcripts", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "I logged ₹40.00 under Food & Dining")
	assert.Contains(t, out, "62% of the smart budget")
	assert.Contains(t, out, "I logged ₹300.00 under Transport")
	assert.NotContains(t, out, "AI Voice Concierge", "dictation has no interactive session")
	assert.Len(t, voiceReceipts(t, env), 2)
}

func TestSayCommand_CurrencyFromConfig(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("RECEIPTS_VOICE_CURRENCY", "usd")

	out, err := env.run(t, "", "say", "I spent 12 on lunch")
	require.NoError(t, err)
	assert.Contains(t, out, "I logged $12.00 under Food & Dining")

	logged := voiceReceipts(t, env)
	require.Len(t, logged, 1)
	assert.Equal(t, "USD", logged[0].Currency)
}

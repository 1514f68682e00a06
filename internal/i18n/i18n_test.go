// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"codeberg.org/fkoehler/go-account-service/internal/i18n"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, i18n.Init())

	en := i18n.WithLocale(context.Background(), language.English)
	de := i18n.WithLocale(context.Background(), language.German)

	enMsg := i18n.T(en, "error_invalid_credentials")
	deMsg := i18n.T(de, "error_invalid_credentials")
	assert.NotEqual(t, "error_invalid_credentials", enMsg)
	assert.NotEqual(t, "error_invalid_credentials", deMsg)
	assert.NotEqual(t, enMsg, deMsg)
}

func TestUnknownKeyFallsBackToID(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)
	assert.Equal(t, "no_such_key", i18n.T(ctx, "no_such_key"))
}

func TestTemplateData(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)
	body := i18n.TData(ctx, "email_verification_body", map[string]any{
		"Username": "alice",
		"Code":     "123456",
	})
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "123456")
}

func TestMatchLanguage(t *testing.T) {
	require.NoError(t, i18n.Init())

	base := func(tag language.Tag) string {
		b, _ := tag.Base()
		return b.String()
	}
	assert.Equal(t, "de", base(i18n.MatchLanguage("de-DE,de;q=0.9,en;q=0.8")))
	assert.Equal(t, "en", base(i18n.MatchLanguage("fr-FR")))
	assert.Equal(t, "en", base(i18n.MatchLanguage("")))
}

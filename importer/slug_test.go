package importer_test

import (
	"context"
	"errors"
	"testing"

	"catalog-service/importer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ART-001", "art-001"},
		{"  Hello,   World!  ", "hello-world"},
		{"Проектор Epson", "proektor-epson"},
		{"Щётка -- жёсткая", "schyotka-zhyostkaya"},
		{"Café Crème", "cafe-creme"},
		{"snake_case ok", "snake_case-ok"},
		{"Μικρόφωνο Pro", "μικροφωνο-pro"},
		{"麦克风 X1", "麦克风-x1"},
		{"---", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, importer.Slugify(tt.in))
		})
	}
}

func TestTransliterate_PassesOtherRunes(t *testing.T) {
	assert.Equal(t, "Mic yozh 5", importer.Transliterate("Mic ёж 5"))
}

func TestGenerateSlug(t *testing.T) {
	taken := map[string]bool{"art-1": true, "art-1-1": true}
	exists := func(_ context.Context, slug string) (bool, error) {
		return taken[slug], nil
	}
	ctx := context.Background()

	slug, err := importer.GenerateSlug(ctx, "Mic A", "ART-1", exists)
	require.NoError(t, err)
	assert.Equal(t, "art-1-2", slug)

	slug, err = importer.GenerateSlug(ctx, "Микрофон A", "", exists)
	require.NoError(t, err)
	assert.Equal(t, "mikrofon-a", slug)

	slug, err = importer.GenerateSlug(ctx, "!!!", "", exists)
	require.NoError(t, err)
	assert.Equal(t, "product", slug)
}

func TestGenerateSlug_ExistsError(t *testing.T) {
	boom := errors.New("db down")
	_, err := importer.GenerateSlug(context.Background(), "Mic", "", func(context.Context, string) (bool, error) {
		return false, boom
	})
	assert.True(t, errors.Is(err, boom))
}

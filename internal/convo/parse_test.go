package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTrackNumber(t *testing.T) {
	assert.Equal(t, "LP123456789CN", NormalizeTrackNumber("  lp123456789cn \n"))
	// Idempotent.
	assert.Equal(t, "LP123456789CN", NormalizeTrackNumber(NormalizeTrackNumber("lp123456789cn")))
}

func TestIsValidTrackNumber(t *testing.T) {
	valid := []string{"LP123456789CN", "12345678", "ABCDEFGHIJ"}
	for _, v := range valid {
		assert.True(t, IsValidTrackNumber(v), v)
	}
	invalid := []string{
		"",
		"SHORT1",                // 6 chars
		"lp123456789cn",         // not normalized
		"LP 12345678",           // space
		"ТРЕК12345678",          // cyrillic
		"A234567890123456789012345678901234567890X", // 41 chars
	}
	for _, v := range invalid {
		assert.False(t, IsValidTrackNumber(v), v)
	}
}

func TestParseRecipient(t *testing.T) {
	t.Run("semicolons", func(t *testing.T) {
		name, phone, city, ok := ParseRecipient("Иванов Иван; +7 999 123-45-67; Москва")
		require.True(t, ok)
		assert.Equal(t, "Иванов Иван", name)
		assert.Equal(t, "+7 999 123-45-67", phone)
		assert.Equal(t, "Москва", city)
	})
	t.Run("newlines", func(t *testing.T) {
		_, phone, _, ok := ParseRecipient("Иванов\n+79991234567\nКазань")
		require.True(t, ok)
		assert.Equal(t, "+79991234567", phone)
	})
	t.Run("mixed separators with empties", func(t *testing.T) {
		name, _, city, ok := ParseRecipient("Петров,, +7 900 000 00 00,\nСочи")
		require.True(t, ok)
		assert.Equal(t, "Петров", name)
		assert.Equal(t, "Сочи", city)
	})
	t.Run("too few fields", func(t *testing.T) {
		_, _, _, ok := ParseRecipient("Иванов; Москва")
		assert.False(t, ok)
	})
	t.Run("too many fields", func(t *testing.T) {
		_, _, _, ok := ParseRecipient("a;b;c;d")
		assert.False(t, ok)
	})
}

func TestFindShipmentCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"EM03-00042-1", "EM03-00042-1", true},
		{"em03 00042 1", "EM03-00042-1", true},
		{"Груз em03_00042_1 готов", "EM03-00042-1", true},
		{"/find EM03-00042-12", "EM03-00042-12", true},
		// Codes keep growing past the initial widths.
		{"EM03-123456-1", "EM03-123456-1", true},
		{"EM03-00042-12345", "EM03-00042-12345", true},
		{"no code here", "", false},
		{"00042-1", "", false},      // missing alpha prefix
		{"EM03-0042-1", "", false},  // client suffix too short
		{"EM03-00042-1A", "", false}, // trailing junk glued to the sequence
	}
	for _, c := range cases {
		got, ok := FindShipmentCode(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseDeliveryChoice(t *testing.T) {
	key, ok := parseDeliveryChoice("1")
	require.True(t, ok)
	assert.Equal(t, "fast_auto", key)

	key, ok = parseDeliveryChoice("4")
	require.True(t, ok)
	assert.Equal(t, "rail", key)

	_, ok = parseDeliveryChoice("5")
	assert.False(t, ok)

	key, ok = parseDeliveryChoice("avia")
	require.True(t, ok)
	assert.Equal(t, "avia", key)

	key, ok = parseDeliveryChoice("Авиа")
	require.True(t, ok)
	assert.Equal(t, "avia", key)

	key, ok = parseDeliveryChoice("🚂 ЖД")
	require.True(t, ok)
	assert.Equal(t, "rail", key)

	_, ok = parseDeliveryChoice("голубиная почта")
	assert.False(t, ok)
}

func TestConfirmCancelDoneWords(t *testing.T) {
	assert.True(t, isConfirmWord("Да"))
	assert.True(t, isConfirmWord(" подтверждаю "))
	assert.False(t, isConfirmWord("нет"))

	assert.True(t, isCancelWord("/cancel"))
	assert.True(t, isCancelWord("Отмена"))
	assert.False(t, isCancelWord("отложить"))

	assert.True(t, isDoneWord("готово"))
	assert.True(t, isDoneWord("/done"))
	assert.False(t, isDoneWord("ещё"))
}

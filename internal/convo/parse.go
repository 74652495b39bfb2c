package convo

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	trackNumberRe  = regexp.MustCompile(`^[A-Z0-9]{8,40}$`)
	shipmentCodeRe = regexp.MustCompile(`\b[A-Z][A-Z0-9]*-\d{5,}-\d+\b`)
)

// NormalizeTrackNumber uppercases and trims a candidate tracking number.
// Normalization is idempotent.
func NormalizeTrackNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsValidTrackNumber reports whether the normalized number is 8-40
// uppercase alphanumerics.
func IsValidTrackNumber(s string) bool {
	return trackNumberRe.MatchString(s)
}

// ParseRecipient splits free-form recipient input into name, phone and
// city. Fields are separated by ';', ',' or newlines; exactly three
// non-empty fields are required.
func ParseRecipient(s string) (name, phone, city string, ok bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n'
	})
	fields := make([]string, 0, 3)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields = append(fields, p)
	}
	if len(fields) != 3 {
		return "", "", "", false
	}
	return fields[0], fields[1], fields[2], true
}

// FindShipmentCode recovers a cargo code like EM03-00042-1 from loosely
// punctuated staff input: the text is uppercased, split on anything that is
// not A-Z or 0-9 and re-joined with dashes before matching.
func FindShipmentCode(text string) (string, bool) {
	fields := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
	})
	joined := strings.Join(fields, "-")
	code := shipmentCodeRe.FindString(joined)
	return code, code != ""
}

// deliveryMethods is the fixed enumerated set, in keyboard order.
var deliveryMethods = []struct {
	Key   string
	Label string
}{
	{"fast_auto", "🚗 Быстрое авто"},
	{"slow_auto", "🚙 Медленное авто"},
	{"avia", "✈ Авиа"},
	{"rail", "🚂 ЖД"},
}

// parseDeliveryChoice accepts a 1-based keyboard number, the method key or
// the label text.
func parseDeliveryChoice(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(text); err == nil {
		if n >= 1 && n <= len(deliveryMethods) {
			return deliveryMethods[n-1].Key, true
		}
		return "", false
	}
	lower := strings.ToLower(text)
	for _, m := range deliveryMethods {
		if lower == m.Key {
			return m.Key, true
		}
		// Label match, with or without the emoji prefix.
		label := strings.ToLower(m.Label)
		if lower == label || strings.HasSuffix(label, lower) {
			return m.Key, true
		}
	}
	return "", false
}

// deliveryLabel renders the human label for a method key.
func deliveryLabel(key string) string {
	for _, m := range deliveryMethods {
		if m.Key == key {
			return m.Label
		}
	}
	return key
}

func deliveryKeyboard() string {
	var b strings.Builder
	for i, m := range deliveryMethods {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(m.Label)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func isConfirmWord(text string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "да", "yes", "ok", "ок", "подтверждаю", "+":
		return true
	}
	return false
}

func isCancelWord(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "/cancel" || t == "отмена" || t == "cancel"
}

func isDoneWord(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "готово" || t == "done" || t == "/done"
}

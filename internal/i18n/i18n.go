// Package i18n holds the few server-side strings the API returns: completion
// feedback, the login prompt, locale-aware relative times and display names.
package i18n

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"liver-quiz-service/internal/domain"
)

const (
	Spanish = "es"
	English = "en"

	// Default is used when nothing in the request matches.
	Default = Spanish
)

// Supported lists the locales with translations, default first.
var Supported = []string{Spanish, English}

var matcher = language.NewMatcher([]language.Tag{language.Spanish, language.English})

var translations = map[string]map[string]string{
	Spanish: {
		"feedback.excellent":  "¡Excelente! Tienes un gran conocimiento sobre salud hepática.",
		"feedback.good":       "¡Bien hecho! Tienes buenos conocimientos básicos.",
		"feedback.fair":       "No está mal, pero podrías aprender un poco más.",
		"feedback.review":     "Te recomendamos revisar más información sobre salud hepática.",
		"answer.correct":      "¡Correcto!",
		"answer.incorrect":    "Incorrecto",
		"auth.login_required": "Inicia sesión para ver tu historial",
		"user.anonymous":      "Usuario Anónimo",
		"time.just_now":       "Hace un momento",
		"time.minute":         "Hace %d minuto",
		"time.minutes":        "Hace %d minutos",
		"time.hour":           "Hace %d hora",
		"time.hours":          "Hace %d horas",
		"time.day":            "Hace %d día",
		"time.days":           "Hace %d días",
		"time.date_layout":    "2/1/2006",
		"results.empty":       "¡Sé el primero en completar el quiz!",
		"history.empty":       "¡Completa tu primer quiz para ver tus resultados aquí!",
		"error.network":       "No se pudo conectar con la base de datos. Inténtalo de nuevo.",
		"error.permission":    "Permiso denegado. Revisa las políticas de seguridad de la tabla.",
		"error.schema":        "La tabla de resultados no existe o le faltan columnas.",
		"error.unknown":       "Error inesperado al guardar o leer resultados.",
	},
	English: {
		"feedback.excellent":  "Excellent! You know a lot about liver health.",
		"feedback.good":       "Well done! You have solid basic knowledge.",
		"feedback.fair":       "Not bad, but you could learn a bit more.",
		"feedback.review":     "We recommend reading more about liver health.",
		"answer.correct":      "Correct!",
		"answer.incorrect":    "Incorrect",
		"auth.login_required": "Sign in to see your history",
		"user.anonymous":      "Anonymous User",
		"time.just_now":       "Just now",
		"time.minute":         "%d minute ago",
		"time.minutes":        "%d minutes ago",
		"time.hour":           "%d hour ago",
		"time.hours":          "%d hours ago",
		"time.day":            "%d day ago",
		"time.days":           "%d days ago",
		"time.date_layout":    "1/2/2006",
		"results.empty":       "Be the first to complete the quiz!",
		"history.empty":       "Complete your first quiz to see your results here!",
		"error.network":       "Could not reach the database. Please try again.",
		"error.permission":    "Permission denied. Check the table's security policies.",
		"error.schema":        "The results table is missing or incomplete.",
		"error.unknown":       "Unexpected error while saving or reading results.",
	},
}

// Negotiate picks a supported locale from an explicit ?lang= value or the
// Accept-Language header. fallback is used when neither matches; an
// unsupported fallback becomes Default.
func Negotiate(queryLang, acceptLanguage, fallback string) string {
	if _, ok := translations[fallback]; !ok {
		fallback = Default
	}
	if queryLang != "" {
		if tag, err := language.Parse(queryLang); err == nil {
			if loc, ok := match(tag); ok {
				return loc
			}
		}
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		return fallback
	}
	for _, tag := range tags {
		if loc, ok := match(tag); ok {
			return loc
		}
	}
	return fallback
}

func match(tag language.Tag) (string, bool) {
	_, index, confidence := matcher.Match(tag)
	if confidence < language.High {
		return "", false
	}
	return Supported[index], true
}

// T returns the translated string for key in locale; falls back to Spanish.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations[Default][key]; ok {
		return v
	}
	return key
}

// ScoreMessage is the closing sentence for a completed attempt.
func ScoreMessage(locale string, tier domain.FeedbackTier) string {
	return T(locale, "feedback."+string(tier))
}

// ErrorMessage is a user-facing line for a result store failure kind.
func ErrorMessage(locale string, kind domain.ErrorKind) string {
	switch kind {
	case domain.KindNetwork:
		return T(locale, "error.network")
	case domain.KindPermissionDenied:
		return T(locale, "error.permission")
	case domain.KindSchema:
		return T(locale, "error.schema")
	default:
		return T(locale, "error.unknown")
	}
}

// TimeAgo renders how long ago t was, switching to a plain date after a week.
func TimeAgo(locale string, t, now time.Time) string {
	d := now.Sub(t)
	minutes := int(d / time.Minute)
	hours := int(d / time.Hour)
	days := int(d / (24 * time.Hour))
	switch {
	case minutes < 1:
		return T(locale, "time.just_now")
	case minutes < 60:
		return plural(locale, "time.minute", minutes)
	case hours < 24:
		return plural(locale, "time.hour", hours)
	case days < 7:
		return plural(locale, "time.day", days)
	}
	return t.Format(T(locale, "time.date_layout"))
}

func plural(locale, key string, n int) string {
	if n != 1 {
		key += "s"
	}
	return fmt.Sprintf(T(locale, key), n)
}

// DisplayName derives a public name from an email: the local part with its
// first letter upper-cased.
func DisplayName(locale, email string) string {
	if email == "" {
		return T(locale, "user.anonymous")
	}
	name, _, _ := strings.Cut(email, "@")
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

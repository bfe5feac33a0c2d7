package viewmodel

import (
	"time"

	"github.com/gofiber/template/html/v2"
)

const dateLayout = "Jan 2, 2006"

var toneClasses = map[string]string{
	"green":  "bg-green-500",
	"blue":   "bg-blue-500",
	"yellow": "bg-yellow-500",
	"red":    "bg-red-500",
	"gray":   "bg-gray-500",
}

// NewEngine loads the html templates under dir and registers the helpers
// they use.
func NewEngine(dir string, reload bool) *html.Engine {
	engine := html.New(dir, ".html")
	engine.Reload(reload)
	engine.AddFunc("date", FormatDate)
	engine.AddFunc("toneClass", ToneClass)
	return engine
}

// FormatDate renders an optional timestamp, "N/A" when unset.
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "N/A"
	}
	return t.Format(dateLayout)
}

func ToneClass(tone string) string {
	if c, ok := toneClasses[tone]; ok {
		return c
	}
	return toneClasses["gray"]
}

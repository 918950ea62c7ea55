// ABOUTME: Message catalogs for the conversation handler
// ABOUTME: English is the default; Russian is the message set the bot first shipped with

package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2389/state-ledger/internal/ledger"
)

// StartCommand always returns the welcome menu, whatever the catalog.
const StartCommand = "/start"

// Catalog is the complete set of keywords and reply strings for one locale.
// Keywords double as quick-reply button labels, so they must match exactly.
type Catalog struct {
	Locale string

	// Keywords
	AddKeyword    string
	TakeKeyword   string
	CountsKeyword string
	BackKeyword   string

	// Replies
	Welcome        string
	AddHint        string
	NoStates       string
	NoCounts       string
	ChooseState    string
	AddedFormat    string // %d
	NothingAdded   string
	NoEmailsFormat string // %s
	CountFormat    string // %s %d
	Unknown        string
	Failure        string

	// Batch rejections, each takes the line number and the offending text
	RejectEmailFormat     string
	RejectStateFormat     string
	RejectDelimiterFormat string
}

// English is the default catalog.
var English = Catalog{
	Locale:        "en",
	AddKeyword:    "Add email",
	TakeKeyword:   "Take email",
	CountsKeyword: "Email counts",
	BackKeyword:   "Back",

	Welcome:        "Welcome!",
	AddHint:        "Send one entry per line as email&STATE or email|STATE, for example:\nuser@example.com|IL",
	NoStates:       "No emails available.",
	NoCounts:       "No emails in the ledger.",
	ChooseState:    "Choose a state:",
	AddedFormat:    "Added %d email(s).",
	NothingAdded:   "No valid entries found.",
	NoEmailsFormat: "No emails for %s.",
	CountFormat:    "%s : %d",
	Unknown:        "Unrecognized command. Use the buttons.",
	Failure:        "Something went wrong. Try again later.",

	RejectEmailFormat:     "line %d: invalid email %q",
	RejectStateFormat:     "line %d: invalid state code %q",
	RejectDelimiterFormat: "line %d: expected email&STATE or email|STATE, got %q",
}

// Russian is the Russian-language message set.
var Russian = Catalog{
	Locale:        "ru",
	AddKeyword:    "Добавить email",
	TakeKeyword:   "Взять email",
	CountsKeyword: "Количество email'ов",
	BackKeyword:   "Назад",

	Welcome:        "Добро пожаловать!",
	AddHint:        "Отправьте email и штат через & или |, по одному на строку, например:\nuser@example.com|IL",
	NoStates:       "Нет доступных email'ов.",
	NoCounts:       "Нет email'ов в базе.",
	ChooseState:    "Выберите штат:",
	AddedFormat:    "Добавлено %d email(ов).",
	NothingAdded:   "Не найдено корректных записей.",
	NoEmailsFormat: "В штате %s нет email'ов.",
	CountFormat:    "%s : %d шт",
	Unknown:        "Неизвестная команда. Используйте кнопки.",
	Failure:        "Что-то пошло не так. Попробуйте позже.",

	RejectEmailFormat:     "строка %d: некорректный email %q",
	RejectStateFormat:     "строка %d: некорректный штат %q",
	RejectDelimiterFormat: "строка %d: ожидается email&ШТАТ или email|ШТАТ, получено %q",
}

// ErrUnknownLocale is returned by CatalogFor for unsupported locales.
var ErrUnknownLocale = errors.New("unknown locale")

// CatalogFor returns the catalog for a locale code.
func CatalogFor(locale string) (Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "", "en":
		return English, nil
	case "ru":
		return Russian, nil
	default:
		return Catalog{}, fmt.Errorf("%w: %q", ErrUnknownLocale, locale)
	}
}

// MainMenu is the button set shown after the welcome text.
func (c Catalog) MainMenu() []string {
	return []string{c.TakeKeyword, c.AddKeyword, c.CountsKeyword}
}

func (c Catalog) keywords() []string {
	return []string{c.AddKeyword, c.TakeKeyword, c.CountsKeyword, c.BackKeyword}
}

// Validate rejects catalogs whose keywords would be shadowed by, or would
// shadow, another intent: blank or duplicated keywords, keywords containing a
// batch delimiter and keywords that parse as a state code.
func (c Catalog) Validate() error {
	seen := make(map[string]bool)
	for _, kw := range c.keywords() {
		trimmed := strings.TrimSpace(kw)
		switch {
		case trimmed == "":
			return fmt.Errorf("catalog %q: blank keyword", c.Locale)
		case trimmed != kw:
			return fmt.Errorf("catalog %q: keyword %q has surrounding whitespace", c.Locale, kw)
		case seen[kw]:
			return fmt.Errorf("catalog %q: duplicate keyword %q", c.Locale, kw)
		case strings.ContainsAny(kw, batchDelimiters):
			return fmt.Errorf("catalog %q: keyword %q contains a batch delimiter", c.Locale, kw)
		case ledger.IsStateCode(kw):
			return fmt.Errorf("catalog %q: keyword %q collides with state code", c.Locale, kw)
		case kw == StartCommand:
			return fmt.Errorf("catalog %q: keyword %q is reserved", c.Locale, kw)
		}
		seen[kw] = true
	}
	return nil
}

// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package translate formats user-visible text for the mimari machine in the
// language of the current user's locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer     *message.Printer
	printerOnce sync.Once
)

// fallback is the language all messages are authored in.
var fallback = language.AmericanEnglish

func load() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("mimari: locale: %v", err)
	}

	tags := []language.Tag{fallback}
	for _, name := range locales {
		tag, err := language.Parse(name)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}

	matcher := language.NewMatcher(tags)
	tag, _, _ := matcher.Match(tags[1:]...)

	printer = message.NewPrinter(tag)
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	printerOnce.Do(load)
	return printer.Sprintf(key, args...)
}

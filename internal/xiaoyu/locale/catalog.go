// Package locale holds the bot's bilingual message catalog.
//
// All user-facing text (personas, command replies, fact-extraction trigger
// phrases) lives in an embedded YAML document, one message set per language.
// The document is validated against a JSON schema at load time, so a broken
// catalog fails at startup rather than mid-conversation.
package locale

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	// Chinese is the catalog's default language (Traditional Chinese).
	Chinese = "zh"
	// English is the alternate language.
	English = "en"
)

//go:embed locales.yaml
var localesYAML []byte

//go:embed locales.schema.json
var localesSchema string

// Messages is the set of user-facing strings for one language.
type Messages struct {
	// Name is the English display name of the language, used in reports.
	Name string `yaml:"name"`

	// Persona is the system-prompt persona for free-text conversations.
	Persona string `yaml:"persona"`

	// Greeting is the /start welcome message.
	Greeting string `yaml:"greeting"`

	// Switched confirms a language change, phrased in the new language.
	Switched string `yaml:"switched"`

	// MemoryHeader opens the /memory listing.  It carries its own trailing
	// blank line so items can be appended directly.
	MemoryHeader string `yaml:"memory_header"`

	// MemoryEmpty is shown by /memory when nothing is stored yet.
	MemoryEmpty string `yaml:"memory_empty"`

	// DatePrompt opens a virtual date via /date.
	DatePrompt string `yaml:"date_prompt"`

	// Fallback is the apology sent when generation fails.
	Fallback string `yaml:"fallback"`

	// Help is the full /help guide, Markdown formatted.
	Help string `yaml:"help"`

	// Triggers are the lowercase phrases that mark a message as carrying
	// personal information worth remembering.
	Triggers []string `yaml:"triggers"`
}

// document is the YAML shape of the catalog file.
type document struct {
	Default   string              `yaml:"default"`
	Languages map[string]Messages `yaml:"languages"`
}

// Catalog resolves message sets by language code.
type Catalog struct {
	def       string
	languages map[string]Messages
}

// Load parses and validates the embedded locale catalog.
func Load() (*Catalog, error) {
	return Parse(localesYAML)
}

// Parse decodes a locale YAML document, validates it against the catalog
// schema and returns the resulting Catalog.
func Parse(data []byte) (*Catalog, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("locale parse: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("locale parse: %w", err)
	}
	if _, ok := doc.Languages[doc.Default]; !ok {
		return nil, fmt.Errorf("locale catalog: default language %q has no message set", doc.Default)
	}
	return &Catalog{def: doc.Default, languages: doc.Languages}, nil
}

// validateSchema checks the decoded YAML document against the embedded JSON
// schema.  The validator expects JSON-decoded values, so the document is
// round-tripped through encoding/json first.
func validateSchema(doc interface{}) error {
	sch, err := jsonschema.CompileString("locales.schema.json", localesSchema)
	if err != nil {
		return fmt.Errorf("locale schema compile: %w", err)
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("locale schema: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(buf, &v); err != nil {
		return fmt.Errorf("locale schema: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("locale catalog invalid: %w", err)
	}
	return nil
}

// Default returns the catalog's default language code.
func (c *Catalog) Default() string {
	return c.def
}

// Messages returns the message set for lang, falling back to the default
// language when lang is not in the catalog.
func (c *Catalog) Messages(lang string) Messages {
	if m, ok := c.languages[lang]; ok {
		return m
	}
	return c.languages[c.def]
}

// Lookup returns the message set for lang and reports whether the language
// is present in the catalog.
func (c *Catalog) Lookup(lang string) (Messages, bool) {
	m, ok := c.languages[lang]
	return m, ok
}

// Languages returns the catalog's language codes in sorted order.
func (c *Catalog) Languages() []string {
	codes := make([]string, 0, len(c.languages))
	for code := range c.languages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Toggle returns the language a user switches to from lang.  The bot speaks
// Traditional Chinese and English; anything unrecognized toggles to Chinese.
func Toggle(lang string) string {
	if lang == Chinese {
		return English
	}
	return Chinese
}

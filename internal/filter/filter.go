package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Rules mapea nombre de categoría → lista ordenada de patrones.
// Los patrones son expresiones regulares case-insensitive; un substring
// literal también funciona. Es configuración declarativa, no código.
type Rules map[string][]string

// Filter clasifica preguntas de mercado contra las categorías permitidas
// de un whale. Función pura: sin estado mutable, sin side effects.
type Filter struct {
	compiled map[string][]*regexp.Regexp
}

// New compila las reglas. Falla si algún patrón no es una regex válida —
// mejor morir al arrancar que descartar trades en silencio.
func New(rules Rules) (*Filter, error) {
	compiled := make(map[string][]*regexp.Regexp, len(rules))
	for category, patterns := range rules {
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("filter.New: category %q pattern %q: %w", category, p, err)
			}
			compiled[normalizeCategory(category)] = append(compiled[normalizeCategory(category)], re)
		}
	}
	return &Filter{compiled: compiled}, nil
}

// Matches devuelve true si la pregunta encaja con algún patrón de alguna
// de las categorías permitidas. Primer match gana (short-circuit).
// Pregunta vacía o set de categorías vacío → false. Categorías sin
// reglas se ignoran. Nunca falla.
func (f *Filter) Matches(question string, categories []string) bool {
	question = strings.TrimSpace(question)
	if question == "" || len(categories) == 0 {
		return false
	}

	for _, cat := range categories {
		for _, re := range f.compiled[normalizeCategory(cat)] {
			if re.MatchString(question) {
				return true
			}
		}
	}
	return false
}

// Categories devuelve los nombres de categoría con reglas compiladas.
func (f *Filter) Categories() []string {
	out := make([]string, 0, len(f.compiled))
	for c := range f.compiled {
		out = append(out, c)
	}
	return out
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

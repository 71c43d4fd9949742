package email

import "strings"

// Placeholders is an ordered token table. Setting an existing token
// replaces its value but keeps its position.
type Placeholders struct {
	keys   []string
	values map[string]string
}

// NewPlaceholders builds a table from token, value pairs. A trailing
// token without a value is ignored.
func NewPlaceholders(pairs ...string) *Placeholders {
	p := &Placeholders{values: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Set(pairs[i], pairs[i+1])
	}
	return p
}

func (p *Placeholders) Set(token, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[token]; !ok {
		p.keys = append(p.keys, token)
	}
	p.values[token] = value
}

func (p *Placeholders) Get(token string) (string, bool) {
	v, ok := p.values[token]
	return v, ok
}

// Keys returns the tokens in insertion order.
func (p *Placeholders) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p *Placeholders) Len() int {
	return len(p.keys)
}

// Merge sets every entry of other on p in other's order.
func (p *Placeholders) Merge(other *Placeholders) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		p.Set(k, other.values[k])
	}
}

// Replace substitutes every token in s in a single pass. Replacement text
// is never scanned again. Empty tokens are skipped.
func (p *Placeholders) Replace(s string) string {
	if len(p.keys) == 0 || s == "" {
		return s
	}
	oldnew := make([]string, 0, 2*len(p.keys))
	for _, k := range p.keys {
		if k == "" {
			continue
		}
		oldnew = append(oldnew, k, p.values[k])
	}
	return strings.NewReplacer(oldnew...).Replace(s)
}

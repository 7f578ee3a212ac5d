package tui

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jask/contacts/internal/config"
)

type Action string

type Binding struct {
	Action Action
	Keys   []string
	Help   string
}

// KeyRegistry maps normalized key names to actions per scope. Lookups fall
// back to the global scope.
type KeyRegistry struct {
	bindingsByScope map[string][]*Binding
	indexByScope    map[string]map[string]*Binding
}

const (
	scopeGlobal  = "global"
	scopeForm    = "form"
	scopeConfirm = "confirm"
	scopeSearch  = "search"
)

const (
	actionQuit      Action = "quit"
	actionUp        Action = "up"
	actionDown      Action = "down"
	actionEdit      Action = "edit"
	actionDelete    Action = "delete"
	actionDeleteAll Action = "delete_all"
	actionSearch    Action = "search"
	actionCancel    Action = "cancel"
	actionNextField Action = "next_field"
	actionSubmit    Action = "submit"
	actionConfirm   Action = "confirm"
)

// textScopes take typed text, so single printable keys cannot be bound there.
var textScopes = map[string]bool{scopeForm: true, scopeSearch: true}

func NewKeyRegistry() *KeyRegistry {
	r := &KeyRegistry{
		bindingsByScope: make(map[string][]*Binding),
		indexByScope:    make(map[string]map[string]*Binding),
	}

	reg := func(scope string, action Action, keys []string, help string) {
		r.Register(scope, Binding{Action: action, Keys: keys, Help: help})
	}

	reg(scopeGlobal, actionQuit, []string{"ctrl+c"}, "quit")

	reg(scopeForm, actionSubmit, []string{"enter"}, "save")
	reg(scopeForm, actionNextField, []string{"tab", "shift+tab"}, "field")
	reg(scopeForm, actionCancel, []string{"esc"}, "cancel")
	reg(scopeForm, actionUp, []string{"up"}, "prev")
	reg(scopeForm, actionDown, []string{"down"}, "next")
	reg(scopeForm, actionEdit, []string{"ctrl+e"}, "edit")
	reg(scopeForm, actionDelete, []string{"ctrl+d"}, "delete")
	reg(scopeForm, actionDeleteAll, []string{"ctrl+x"}, "delete all")
	reg(scopeForm, actionSearch, []string{"ctrl+f"}, "search")

	reg(scopeConfirm, actionConfirm, []string{"y", "Y"}, "yes")
	reg(scopeConfirm, actionCancel, []string{"n", "N", "esc"}, "no")

	reg(scopeSearch, actionSubmit, []string{"enter"}, "keep filter")
	reg(scopeSearch, actionCancel, []string{"esc"}, "clear")

	return r
}

func (r *KeyRegistry) Register(scope string, b Binding) {
	b.Keys = normalizeKeyList(b.Keys)
	nb := b
	r.bindingsByScope[scope] = append(r.bindingsByScope[scope], &nb)
	if r.indexByScope[scope] == nil {
		r.indexByScope[scope] = make(map[string]*Binding)
	}
	for _, k := range nb.Keys {
		r.indexByScope[scope][k] = &nb
	}
}

// Lookup returns the binding for keyName in scope, or nil.
func (r *KeyRegistry) Lookup(keyName, scope string) *Binding {
	keyName = normalizeKeyName(keyName)
	if b := r.indexByScope[scope][keyName]; b != nil {
		return b
	}
	if scope != scopeGlobal {
		return r.indexByScope[scopeGlobal][keyName]
	}
	return nil
}

// Help renders the footer for scope followed by the global bindings.
func (r *KeyRegistry) Help(scope string) string {
	var parts []string
	for _, s := range []string{scope, scopeGlobal} {
		for _, b := range r.bindingsByScope[s] {
			if len(b.Keys) == 0 {
				continue
			}
			parts = append(parts, fmt.Sprintf("[%s] %s", b.Keys[0], b.Help))
		}
	}
	return strings.Join(parts, "  ")
}

// ApplyOverrides rebinds actions from config. Either every item applies
// or none does.
//
// Global bindings are reachable from every scope, so in the text scopes
// they are checked together with the scope's own bindings: neither may
// claim a key that types text, and no key may resolve to two actions.
func (r *KeyRegistry) ApplyOverrides(items []config.KeyBinding) error {
	if len(items) == 0 {
		return nil
	}
	next := make(map[string]map[Action][]string, len(r.bindingsByScope))
	for scope, bindings := range r.bindingsByScope {
		next[scope] = make(map[Action][]string, len(bindings))
		for _, b := range bindings {
			next[scope][b.Action] = b.Keys
		}
	}

	touched := make(map[string]bool)
	for i, item := range items {
		scope := strings.TrimSpace(item.Scope)
		action := Action(strings.TrimSpace(item.Action))
		where := fmt.Sprintf("keys[%d] (%s/%s)", i, scope, action)
		actions, ok := next[scope]
		switch {
		case scope == "" || action == "":
			return fmt.Errorf("%s: scope and action must both be set", where)
		case !ok:
			return fmt.Errorf("%s: no such scope", where)
		}
		if _, ok := actions[action]; !ok {
			return fmt.Errorf("%s: scope has no such action", where)
		}
		id := scope + "/" + string(action)
		if touched[id] {
			return fmt.Errorf("%s: rebound more than once", where)
		}
		touched[id] = true
		keys := normalizeKeyList(item.Keys)
		if len(keys) == 0 {
			return fmt.Errorf("%s: no keys given", where)
		}
		actions[action] = keys
	}

	for _, scope := range sortedScopes(next) {
		reachable := []string{scope}
		if scope != scopeGlobal {
			reachable = append(reachable, scopeGlobal)
		}
		owner := make(map[string]string)
		for _, s := range reachable {
			for _, action := range sortedActions(next[s]) {
				for _, k := range next[s][action] {
					if textScopes[scope] && typesText(k) {
						return fmt.Errorf("keys: %q for %s/%s would be typed into %s instead", k, s, action, scope)
					}
					name := s + "/" + string(action)
					if prev, ok := owner[k]; ok {
						return fmt.Errorf("keys: %q is bound to both %s and %s in %s", k, prev, name, scope)
					}
					owner[k] = name
				}
			}
		}
	}

	for scope, bindings := range r.bindingsByScope {
		for _, b := range bindings {
			b.Keys = next[scope][b.Action]
		}
	}
	r.rebuildIndex()
	return nil
}

// typesText reports whether a normalized key produces a character in a
// text field.
func typesText(k string) bool {
	if k == "space" {
		return true
	}
	r, size := utf8.DecodeRuneInString(k)
	return size == len(k) && unicode.IsPrint(r)
}

func sortedScopes(m map[string]map[Action][]string) []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func sortedActions(m map[Action][]string) []Action {
	out := make([]Action, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *KeyRegistry) rebuildIndex() {
	r.indexByScope = make(map[string]map[string]*Binding, len(r.bindingsByScope))
	for scope, bindings := range r.bindingsByScope {
		idx := make(map[string]*Binding)
		for _, b := range bindings {
			for _, k := range b.Keys {
				idx[k] = b
			}
		}
		r.indexByScope[scope] = idx
	}
}

// keyAliases maps alternate spellings to the names bubbletea reports.
var keyAliases = strings.NewReplacer(
	"control+", "ctrl+",
	"ctl+", "ctrl+",
	"return", "enter",
	"escape", "esc",
	"spacebar", "space",
)

func normalizeKeyList(keys []string) []string {
	var out []string
	for _, k := range keys {
		if n := normalizeKeyName(k); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// normalizeKeyName lowercases and de-aliases a key name. A lone uppercase
// letter is kept as is since it is a different key from its lowercase form.
func normalizeKeyName(k string) string {
	if k == " " {
		return "space"
	}
	k = strings.TrimSpace(k)
	if r, size := utf8.DecodeRuneInString(k); size == len(k) && unicode.IsUpper(r) {
		return k
	}
	return keyAliases.Replace(strings.ReplaceAll(strings.ToLower(k), " ", ""))
}
